package scripting

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/component"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

// Engine packages are importable from scripts as "gdengine/<name>".
var goBaseExports = interp.Exports{
	"gdengine/ecs/ecs": {
		"World":         reflect.ValueOf((*ecs.World)(nil)),
		"Entity":        reflect.ValueOf((*ecs.Entity)(nil)),
		"EntityID":      reflect.ValueOf((*ecs.EntityID)(nil)),
		"Transform":     reflect.ValueOf((*ecs.Transform)(nil)),
		"Component":     reflect.ValueOf((*ecs.Component)(nil)),
		"Behaviour":     reflect.ValueOf((*ecs.Behaviour)(nil)),
		"SortKey":       reflect.ValueOf((*ecs.SortKey)(nil)),
		"Property":      reflect.ValueOf((*ecs.Property)(nil)),
		"KindTransform": reflect.ValueOf(ecs.KindTransform),
		"EntityOf":      reflect.ValueOf(ecs.EntityOf),
		"FindProperty":  reflect.ValueOf(ecs.FindProperty),
		"ErrCycle":      reflect.ValueOf(&ecs.ErrCycle).Elem(),
		"ErrDestroyed":  reflect.ValueOf(&ecs.ErrDestroyed).Elem(),
	},
	"gdengine/component/component": {
		"Shape":        reflect.ValueOf((*component.Shape)(nil)),
		"Sprite":       reflect.ValueOf((*component.Sprite)(nil)),
		"Rotor":        reflect.ValueOf((*component.Rotor)(nil)),
		"Tween":        reflect.ValueOf((*component.Tween)(nil)),
		"NewShape":     reflect.ValueOf(component.NewShape),
		"NewRect":      reflect.ValueOf(component.NewRect),
		"NewPolygon":   reflect.ValueOf(component.NewPolygon),
		"NewLine":      reflect.ValueOf(component.NewLine),
		"NewSprite":    reflect.ValueOf(component.NewSprite),
		"NewRotor":     reflect.ValueOf(component.NewRotor),
		"NewTween":     reflect.ValueOf(component.NewTween),
		"Easings":      reflect.ValueOf(component.Easings),
		"KindShape":    reflect.ValueOf(component.KindShape),
		"KindSprite":   reflect.ValueOf(component.KindSprite),
		"KindRotor":    reflect.ValueOf(component.KindRotor),
		"KindTween":    reflect.ValueOf(component.KindTween),
		"ShapeRect":    reflect.ValueOf(component.ShapeRect),
		"ShapeLine":    reflect.ValueOf(component.ShapeLine),
		"ShapePolygon": reflect.ValueOf(component.ShapePolygon),
	},
	"gdengine/geom/geom": {
		"Vec2":       reflect.ValueOf((*geom.Vec2)(nil)),
		"Rect":       reflect.ValueOf((*geom.Rect)(nil)),
		"V":          reflect.ValueOf(geom.V),
		"RectAround": reflect.ValueOf(geom.RectAround),
	},
	"gdengine/render/render": {
		"Color":      reflect.ValueOf((*render.Color)(nil)),
		"ParseColor": reflect.ValueOf(render.ParseColor),
		"White":      reflect.ValueOf(&render.White).Elem(),
		"Black":      reflect.ValueOf(&render.Black).Elem(),
		"Red":        reflect.ValueOf(&render.Red).Elem(),
		"Green":      reflect.ValueOf(&render.Green).Elem(),
		"Blue":       reflect.ValueOf(&render.Blue).Elem(),
		"Yellow":     reflect.ValueOf(&render.Yellow).Elem(),
		"Cyan":       reflect.ValueOf(&render.Cyan).Elem(),
	},
	"gdengine/host/host": {
		"Hooks": reflect.ValueOf((*Hooks)(nil)),
	},
}

var errNoAssets = errors.New("no asset loader")

// exports copies the shared symbols and adds the ones bound to this unit.
func (u *goUnit) exports() interp.Exports {
	ex := make(interp.Exports, len(goBaseExports)+2)
	for pkg, symbols := range goBaseExports {
		m := make(map[string]reflect.Value, len(symbols)+2)
		for k, v := range symbols {
			m[k] = v
		}
		ex[pkg] = m
	}

	ex["gdengine/ecs/ecs"]["NewBehaviour"] = reflect.ValueOf(func(name string, update func(*ecs.Behaviour, float64)) *ecs.Behaviour {
		b := ecs.NewBehaviour(name, update)
		u.track(b)
		return b
	})
	ex["gdengine/component/component"]["New"] = reflect.ValueOf(func(kind string) (ecs.Component, error) {
		if u.env == nil || u.env.Components == nil {
			return nil, errors.New("no component registry")
		}
		return u.env.Components.New(kind)
	})

	ex["gdengine/assets/assets"] = map[string]reflect.Value{
		"Texture": reflect.ValueOf((*asset.Texture)(nil)),
		"LoadTexture": reflect.ValueOf(func(path string) (*asset.Texture, error) {
			if u.env == nil || u.env.Assets == nil {
				return nil, errNoAssets
			}
			return u.env.Assets.LoadTexture(path)
		}),
		"Exists": reflect.ValueOf(func(path string) bool {
			return u.env != nil && u.env.Assets != nil && u.env.Assets.Exists(path)
		}),
	}

	logf := func(level string) func(string) {
		return func(msg string) {
			log := u.log
			if u.env != nil && u.env.Log != nil {
				log = u.env.Log
			}
			fields := []zap.Field{zap.String("src", "Script"), zap.String("entry", u.entry)}
			switch level {
			case "debug":
				log.Debug(msg, fields...)
			case "warn":
				log.Warn(msg, fields...)
			case "error":
				log.Error(msg, fields...)
			default:
				log.Info(msg, fields...)
			}
		}
	}
	ex["gdengine/log/log"] = map[string]reflect.Value{
		"Debug": reflect.ValueOf(logf("debug")),
		"Info":  reflect.ValueOf(logf("info")),
		"Warn":  reflect.ValueOf(logf("warn")),
		"Error": reflect.ValueOf(logf("error")),
		"Log":   reflect.ValueOf(logf("info")),
		"Logf": reflect.ValueOf(func(format string, args ...any) {
			logf("info")(fmt.Sprintf(format, args...))
		}),
	}
	return ex
}
