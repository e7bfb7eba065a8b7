package packet

// Protocol is bumped whenever a frame layout changes.
const Protocol = 1

// Editor -> engine.
const (
	C_HELLO        byte = 1 // [H protocol][S client]
	C_LOAD_PROJECT byte = 2 // [S path]
	C_STOP         byte = 3
	C_SELECT       byte = 4 // [Q entity, 0 clears]
	C_REPARENT     byte = 5 // [Q entity][Q parent, 0 = root][D index, -1 appends]
	C_DESTROY      byte = 6 // [Q entity]
	C_SAVE_SCENE   byte = 7 // [S path, empty = project scene]
	C_REQUEST_TREE byte = 8
	C_PING         byte = 9  // [D token]
	C_SET_PAUSED   byte = 10 // [C paused]
	C_LOAD_SCENE   byte = 11 // [S path, empty = project scene][C clear]
	C_RESTORE      byte = 12 // [S snapshot name, empty = "shutdown"]
	C_RUN_HISTORY  byte = 13 // [H limit]
)

// Engine -> editor.
const (
	S_HELLO      byte = 128 // [H protocol][S engine][S host state]
	S_HOST_STATE byte = 129 // [S run][S from][S to][S diagnostic]
	S_STRUCTURE  byte = 130 // [S reason][Q entity]
	S_SELECTION  byte = 131 // [Q entity]
	S_LOG        byte = 132 // [S level][S src][S msg]
	S_TREE       byte = 133 // [H count]{[Q id][Q parent][S name][S tag][D layer][C flags][H n]{[S kind]}}
	S_RESULT     byte = 134 // [C request opcode][C ok][S message]
	S_FAULT      byte = 135 // [S run][S hook][S err]
	S_PONG       byte = 136 // [D token]
	S_HISTORY    byte = 137 // [H count]{[S run][S entry][S language][S digest][S state][S diagnostic][Q unix ms]}
)

// Tree entry flags.
const (
	FlagEnabled  byte = 1 << 0
	FlagScripted byte = 1 << 1
	FlagSelected byte = 1 << 2
)

func OpcodeName(op byte) string {
	switch op {
	case C_HELLO:
		return "C_HELLO"
	case C_LOAD_PROJECT:
		return "C_LOAD_PROJECT"
	case C_STOP:
		return "C_STOP"
	case C_SELECT:
		return "C_SELECT"
	case C_REPARENT:
		return "C_REPARENT"
	case C_DESTROY:
		return "C_DESTROY"
	case C_SAVE_SCENE:
		return "C_SAVE_SCENE"
	case C_REQUEST_TREE:
		return "C_REQUEST_TREE"
	case C_PING:
		return "C_PING"
	case C_SET_PAUSED:
		return "C_SET_PAUSED"
	case C_LOAD_SCENE:
		return "C_LOAD_SCENE"
	case C_RESTORE:
		return "C_RESTORE"
	case C_RUN_HISTORY:
		return "C_RUN_HISTORY"
	case S_HELLO:
		return "S_HELLO"
	case S_HOST_STATE:
		return "S_HOST_STATE"
	case S_STRUCTURE:
		return "S_STRUCTURE"
	case S_SELECTION:
		return "S_SELECTION"
	case S_LOG:
		return "S_LOG"
	case S_TREE:
		return "S_TREE"
	case S_RESULT:
		return "S_RESULT"
	case S_FAULT:
		return "S_FAULT"
	case S_PONG:
		return "S_PONG"
	case S_HISTORY:
		return "S_HISTORY"
	}
	return "UNKNOWN"
}
