package link

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/link/packet"
)

var (
	handshake = []packet.SessionState{packet.StateHandshake}
	ready     = []packet.SessionState{packet.StateReady}
)

func (e *Editor) registerHandlers() {
	e.reg.Register(packet.C_HELLO, handshake, e.handleHello)
	e.reg.Register(packet.C_LOAD_PROJECT, ready, e.handleLoadProject)
	e.reg.Register(packet.C_STOP, ready, e.handleStop)
	e.reg.Register(packet.C_SELECT, ready, e.handleSelect)
	e.reg.Register(packet.C_REPARENT, ready, e.handleReparent)
	e.reg.Register(packet.C_DESTROY, ready, e.handleDestroy)
	e.reg.Register(packet.C_SAVE_SCENE, ready, e.handleSaveScene)
	e.reg.Register(packet.C_REQUEST_TREE, ready, e.handleRequestTree)
	e.reg.Register(packet.C_PING, ready, e.handlePing)
	e.reg.Register(packet.C_SET_PAUSED, ready, e.handleSetPaused)
	e.reg.Register(packet.C_LOAD_SCENE, ready, e.handleLoadScene)
	e.reg.Register(packet.C_RESTORE, ready, e.handleRestore)
	e.reg.Register(packet.C_RUN_HISTORY, ready, e.handleRunHistory)
}

func (e *Editor) handleHello(sess any, r *packet.Reader) {
	s := sess.(*Session)
	proto := r.ReadH()
	s.Client = r.ReadS()
	if proto != packet.Protocol {
		e.result(s, packet.C_HELLO, fmt.Errorf("protocol %d not supported, want %d", proto, packet.Protocol))
		s.Close()
		return
	}
	s.SetState(packet.StateReady)
	e.log.Info("editor ready", zap.String("src", "Link"), zap.Uint64("session", s.ID), zap.String("client", s.Client))

	w := packet.NewWriter(packet.S_HELLO)
	w.WriteH(packet.Protocol)
	w.WriteS(e.name)
	state := ""
	if e.host != nil {
		state = e.host.State().String()
	}
	w.WriteS(state)
	s.Send(w.Bytes())
	s.Send(e.tree())
}

func (e *Editor) handleLoadProject(sess any, r *packet.Reader) {
	s := sess.(*Session)
	path := e.resolveProject(r.ReadS())
	if path == "" {
		e.result(s, packet.C_LOAD_PROJECT, errors.New("empty project path"))
		return
	}
	if e.host == nil {
		e.result(s, packet.C_LOAD_PROJECT, errors.New("no script host"))
		return
	}
	if e.async {
		e.host.LoadAsync(e.ctx, path)
		e.result(s, packet.C_LOAD_PROJECT, nil)
		return
	}
	e.result(s, packet.C_LOAD_PROJECT, e.host.Load(e.ctx, path))
}

func (e *Editor) handleStop(sess any, _ *packet.Reader) {
	if e.host != nil {
		e.host.Stop()
	}
	e.result(sess.(*Session), packet.C_STOP, nil)
}

func (e *Editor) handleSelect(sess any, r *packet.Reader) {
	s := sess.(*Session)
	id := r.ReadQ()
	if id == 0 {
		e.world.Select(nil)
		e.result(s, packet.C_SELECT, nil)
		return
	}
	ent, err := e.entity(id)
	if err == nil {
		e.world.Select(ent)
	}
	e.result(s, packet.C_SELECT, err)
}

func (e *Editor) handleReparent(sess any, r *packet.Reader) {
	s := sess.(*Session)
	id, parentID, index := r.ReadQ(), r.ReadQ(), int(r.ReadD())
	ent, err := e.entity(id)
	if err != nil {
		e.result(s, packet.C_REPARENT, err)
		return
	}
	var parent *ecs.Entity
	if parentID != 0 {
		if parent, err = e.entity(parentID); err != nil {
			e.result(s, packet.C_REPARENT, err)
			return
		}
	}
	e.result(s, packet.C_REPARENT, e.world.SetParent(ent, parent, index))
}

func (e *Editor) handleDestroy(sess any, r *packet.Reader) {
	s := sess.(*Session)
	ent, err := e.entity(r.ReadQ())
	if err == nil {
		e.world.Destroy(ent)
	}
	e.result(s, packet.C_DESTROY, err)
}

func (e *Editor) handleSaveScene(sess any, r *packet.Reader) {
	s := sess.(*Session)
	path, err := e.projectPath(r.ReadS())
	if err != nil {
		e.result(s, packet.C_SAVE_SCENE, err)
		return
	}
	if e.codec == nil {
		e.result(s, packet.C_SAVE_SCENE, errors.New("no scene codec"))
		return
	}
	e.result(s, packet.C_SAVE_SCENE, e.codec.Save(path, e.world))
}

func (e *Editor) handleRequestTree(sess any, _ *packet.Reader) {
	sess.(*Session).Send(e.tree())
}

func (e *Editor) handlePing(sess any, r *packet.Reader) {
	w := packet.NewWriter(packet.S_PONG)
	w.WriteD(r.ReadD())
	sess.(*Session).Send(w.Bytes())
}

func (e *Editor) handleSetPaused(sess any, r *packet.Reader) {
	e.world.SetPaused(r.ReadC() != 0)
	e.result(sess.(*Session), packet.C_SET_PAUSED, nil)
}

// handleLoadScene loads a scene file. A replacing load stops the script
// first, so the sweep and the world reset stay in step.
func (e *Editor) handleLoadScene(sess any, r *packet.Reader) {
	s := sess.(*Session)
	path, err := e.projectPath(r.ReadS())
	replace := r.ReadC() != 0
	if err == nil && e.codec == nil {
		err = errors.New("no scene codec")
	}
	if err != nil {
		e.result(s, packet.C_LOAD_SCENE, err)
		return
	}
	if replace && e.host != nil {
		e.host.Stop()
	}
	_, err = e.codec.Load(path, e.world, replace)
	e.result(s, packet.C_LOAD_SCENE, err)
}

func (e *Editor) handleRestore(sess any, r *packet.Reader) {
	s := sess.(*Session)
	name := r.ReadS()
	if name == "" {
		name = "shutdown"
	}
	if e.snaps == nil || e.codec == nil {
		e.result(s, packet.C_RESTORE, errNoStore)
		return
	}
	if e.host == nil || e.host.Project() == nil {
		e.result(s, packet.C_RESTORE, errNoProject)
		return
	}
	ctx, cancel := context.WithTimeout(e.ctx, storeTimeout)
	defer cancel()
	snap, err := e.snaps.Latest(ctx, e.host.Project().Manifest.Name, name)
	if err != nil {
		e.result(s, packet.C_RESTORE, err)
		return
	}
	e.host.Stop()
	_, err = e.codec.LoadBytes(snap.Document, e.world, true, fmt.Sprintf("snapshot %d", snap.ID))
	e.result(s, packet.C_RESTORE, err)
}

func (e *Editor) handleRunHistory(sess any, r *packet.Reader) {
	s := sess.(*Session)
	limit := int(r.ReadH())
	if limit == 0 {
		limit = 20
	}
	if e.runs == nil {
		e.result(s, packet.C_RUN_HISTORY, errNoStore)
		return
	}
	if e.host == nil || e.host.Project() == nil {
		e.result(s, packet.C_RUN_HISTORY, errNoProject)
		return
	}
	ctx, cancel := context.WithTimeout(e.ctx, storeTimeout)
	defer cancel()
	rows, err := e.runs.History(ctx, e.host.Project().Manifest.Name, limit)
	if err != nil {
		e.result(s, packet.C_RUN_HISTORY, err)
		return
	}
	w := packet.NewWriter(packet.S_HISTORY)
	w.WriteH(uint16(len(rows)))
	for _, row := range rows {
		w.WriteS(row.RunID)
		w.WriteS(row.Entry)
		w.WriteS(row.Language)
		w.WriteS(row.Digest)
		w.WriteS(row.State)
		w.WriteS(row.Diagnostic)
		w.WriteQ(uint64(row.At.UnixMilli()))
	}
	s.Send(w.Bytes())
}
