package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/schema"
)

// APIVersion is published to scripts as the API_VERSION global.
const APIVersion = 1

// Bridge exposes a world to a single gopher-lua VM. Components are addressed
// by numeric type id and converted through their schema layouts, so scripts
// reach Go components and script-only components the same way.
// Single-goroutine access only (game loop).
type Bridge struct {
	vm      *lua.LState
	world   *ecs.Coordinator
	layouts map[ecs.ComponentType]schema.Layout
	log     *zap.Logger
}

// NewBridge registers the script components of reg with world and installs
// the ecs module. Scripts are loaded separately with LoadDir.
func NewBridge(world *ecs.Coordinator, reg *schema.Registry, log *zap.Logger) (*Bridge, error) {
	if log == nil {
		log = zap.NewNop()
	}
	layouts, err := RegisterScriptComponents(world, reg)
	if err != nil {
		return nil, err
	}

	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	b := &Bridge{vm: vm, world: world, layouts: layouts, log: log}
	vm.SetGlobal("ecs", b.module())
	return b, nil
}

// RegisterScriptComponents makes every component declaration of reg
// addressable by type id. Declarations bound to a Go type must already be
// registered and must match the Go size; the rest become raw components.
func RegisterScriptComponents(world *ecs.Coordinator, reg *schema.Registry) (map[ecs.ComponentType]schema.Layout, error) {
	out := make(map[ecs.ComponentType]schema.Layout)
	for _, d := range reg.Components() {
		l, err := reg.Flatten(d.Name)
		if err != nil {
			return nil, fmt.Errorf("flatten %s: %w", d.Name, err)
		}

		var id ecs.ComponentType
		if d.GoType != "" {
			id, err = world.ComponentTypeByName(d.GoType)
			if err != nil {
				return nil, fmt.Errorf("bind %s to %s: %w", d.Name, d.GoType, err)
			}
			info, err := world.ComponentInfo(id)
			if err != nil {
				return nil, err
			}
			if !info.Raw {
				return nil, fmt.Errorf("bind %s: %s: %w", d.Name, d.GoType, ecs.ErrRawAccessUnsupported)
			}
			if info.Size != l.Size {
				return nil, fmt.Errorf("bind %s: %w: schema has %d bytes, %s has %d",
					d.Name, ecs.ErrRawSizeMismatch, l.Size, d.GoType, info.Size)
			}
		} else {
			id, err = world.RegisterRawComponent(d.Name, l.Size)
			if err != nil {
				return nil, fmt.Errorf("register %s: %w", d.Name, err)
			}
		}
		l.Name = d.Name
		out[id] = l
	}
	return out, nil
}

// LoadDir loads core scripts first, then the optional feature directories.
// Missing directories are skipped.
func (b *Bridge) LoadDir(scriptsDir string) error {
	for _, sub := range []string{"core", "systems"} {
		p := filepath.Join(scriptsDir, sub)
		if err := b.loadDir(p); err != nil {
			return fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return nil
}

func (b *Bridge) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := b.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		b.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk in the bridge VM.
func (b *Bridge) DoString(src string) error {
	return b.vm.DoString(src)
}

// Call invokes the global function name with args and returns its first
// result. A missing function yields LNil and no error.
func (b *Bridge) Call(name string, args ...lua.LValue) (lua.LValue, error) {
	fn := b.vm.GetGlobal(name)
	if fn == lua.LNil {
		return lua.LNil, nil
	}
	if err := b.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		return lua.LNil, fmt.Errorf("lua %s: %w", name, err)
	}
	result := b.vm.Get(-1)
	b.vm.Pop(1)
	return result, nil
}

// Layout returns the schema layout bound to a type id.
func (b *Bridge) Layout(id ecs.ComponentType) (schema.Layout, bool) {
	l, ok := b.layouts[id]
	return l, ok
}

// Close releases the Lua VM.
func (b *Bridge) Close() {
	b.vm.Close()
}

func (b *Bridge) module() *lua.LTable {
	mod := b.vm.SetFuncs(b.vm.NewTable(), map[string]lua.LGFunction{
		"create_entity":    b.luaCreateEntity,
		"destroy_entity":   b.luaDestroyEntity,
		"is_alive":         b.luaIsAlive,
		"living_count":     b.luaLivingCount,
		"type_id":          b.luaTypeID,
		"add_component":    b.luaAddComponent,
		"set_component":    b.luaSetComponent,
		"get_component":    b.luaGetComponent,
		"has_component":    b.luaHasComponent,
		"remove_component": b.luaRemoveComponent,
		"query":            b.luaQuery,
		"log":              b.luaLog,
	})

	types := b.vm.NewTable()
	ids := make([]ecs.ComponentType, 0, len(b.layouts))
	for id := range b.layouts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		types.RawSetString(b.layouts[id].Name, lua.LNumber(id))
	}
	mod.RawSetString("types", types)
	return mod
}

// Entities cross into Lua as "index#generation" strings: opaque, comparable
// and usable as table keys without losing generation bits to float64.
func entityValue(e ecs.Entity) lua.LValue {
	return lua.LString(e.String())
}

func parseEntity(s string) (ecs.Entity, bool) {
	idx, gen, ok := strings.Cut(s, "#")
	if !ok {
		return ecs.NullEntity, false
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return ecs.NullEntity, false
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil {
		return ecs.NullEntity, false
	}
	return ecs.NewEntity(uint32(i), uint32(g)), true
}

func (b *Bridge) checkEntity(L *lua.LState, n int) ecs.Entity {
	e, ok := parseEntity(L.CheckString(n))
	if !ok {
		L.ArgError(n, "entity expected")
	}
	return e
}

func (b *Bridge) checkType(L *lua.LState, n int) (ecs.ComponentType, schema.Layout) {
	raw := L.CheckInt(n)
	if raw < 0 || raw >= ecs.MaxComponentTypes {
		L.ArgError(n, "type id out of range")
	}
	id := ecs.ComponentType(raw)
	l, ok := b.layouts[id]
	if !ok {
		L.ArgError(n, fmt.Sprintf("type id %d has no schema", id))
	}
	return id, l
}

func (b *Bridge) raise(L *lua.LState, err error) int {
	L.RaiseError("%s", err.Error())
	return 0
}

func (b *Bridge) luaCreateEntity(L *lua.LState) int {
	e, err := b.world.CreateEntity()
	if err != nil {
		return b.raise(L, err)
	}
	L.Push(entityValue(e))
	return 1
}

func (b *Bridge) luaDestroyEntity(L *lua.LState) int {
	if err := b.world.DestroyEntity(b.checkEntity(L, 1)); err != nil {
		return b.raise(L, err)
	}
	return 0
}

func (b *Bridge) luaIsAlive(L *lua.LState) int {
	e, ok := parseEntity(L.CheckString(1))
	L.Push(lua.LBool(ok && b.world.IsAlive(e)))
	return 1
}

func (b *Bridge) luaLivingCount(L *lua.LState) int {
	L.Push(lua.LNumber(b.world.LivingCount()))
	return 1
}

func (b *Bridge) luaTypeID(L *lua.LState) int {
	name := L.CheckString(1)
	for id, l := range b.layouts {
		if l.Name == name {
			L.Push(lua.LNumber(id))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

func (b *Bridge) luaAddComponent(L *lua.LState) int {
	e := b.checkEntity(L, 1)
	id, l := b.checkType(L, 2)
	values := map[string]any{}
	if L.GetTop() >= 3 {
		flattenTable(L.CheckTable(3), "", values)
	}
	buf, err := l.Encode(values)
	if err != nil {
		return b.raise(L, err)
	}
	if err := b.world.AddComponentRaw(e, id, buf); err != nil {
		return b.raise(L, err)
	}
	return 0
}

// set_component writes the given fields in place; fields not named keep
// their value.
func (b *Bridge) luaSetComponent(L *lua.LState) int {
	e := b.checkEntity(L, 1)
	id, l := b.checkType(L, 2)
	values := map[string]any{}
	flattenTable(L.CheckTable(3), "", values)

	buf, err := b.world.GetComponentRaw(e, id)
	if err != nil {
		return b.raise(L, err)
	}
	for name, v := range values {
		if err := l.Set(buf, name, v); err != nil {
			return b.raise(L, err)
		}
	}
	return 0
}

func (b *Bridge) luaGetComponent(L *lua.LState) int {
	e := b.checkEntity(L, 1)
	id, l := b.checkType(L, 2)
	if !b.world.HasComponentByType(e, id) {
		L.Push(lua.LNil)
		return 1
	}
	buf, err := b.world.GetComponentRaw(e, id)
	if err != nil {
		return b.raise(L, err)
	}
	values, err := l.Decode(buf)
	if err != nil {
		return b.raise(L, err)
	}
	L.Push(b.toTable(values))
	return 1
}

func (b *Bridge) luaHasComponent(L *lua.LState) int {
	e := b.checkEntity(L, 1)
	id, _ := b.checkType(L, 2)
	L.Push(lua.LBool(b.world.HasComponentByType(e, id)))
	return 1
}

func (b *Bridge) luaRemoveComponent(L *lua.LState) int {
	e := b.checkEntity(L, 1)
	id, _ := b.checkType(L, 2)
	if err := b.world.RemoveComponentByType(e, id); err != nil {
		return b.raise(L, err)
	}
	return 0
}

// query(id, ...) returns an array of the entities holding every given type.
func (b *Bridge) luaQuery(L *lua.LState) int {
	var required ecs.Signature
	for n := 1; n <= L.GetTop(); n++ {
		id, _ := b.checkType(L, n)
		required.Set(id)
	}
	out := L.NewTable()
	for _, e := range b.world.EntitiesWith(required, ecs.Signature{}) {
		out.Append(entityValue(e))
	}
	L.Push(out)
	return 1
}

func (b *Bridge) luaLog(L *lua.LState) int {
	b.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// flattenTable turns nested tables into dotted field names. Array tables are
// vectors and stay values.
func flattenTable(t *lua.LTable, prefix string, out map[string]any) {
	t.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		name := string(key)
		if prefix != "" {
			name = prefix + "." + name
		}
		switch val := v.(type) {
		case lua.LBool:
			out[name] = bool(val)
		case lua.LNumber:
			out[name] = float64(val)
		case *lua.LTable:
			if val.Len() > 0 {
				vec := make([]float64, val.Len())
				for i := range vec {
					vec[i] = float64(lua.LVAsNumber(val.RawGetInt(i + 1)))
				}
				out[name] = vec
				return
			}
			flattenTable(val, name, out)
		default:
			out[name] = val.String()
		}
	})
}

// toTable rebuilds nested tables from dotted field names.
func (b *Bridge) toTable(values map[string]any) *lua.LTable {
	root := b.vm.NewTable()
	for name, v := range values {
		t := root
		parts := strings.Split(name, ".")
		for _, p := range parts[:len(parts)-1] {
			next, ok := t.RawGetString(p).(*lua.LTable)
			if !ok {
				next = b.vm.NewTable()
				t.RawSetString(p, next)
			}
			t = next
		}
		t.RawSetString(parts[len(parts)-1], toLua(b.vm, v))
	}
	return root
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch n := v.(type) {
	case bool:
		return lua.LBool(n)
	case int64:
		return lua.LNumber(n)
	case uint64:
		return lua.LNumber(n)
	case float64:
		return lua.LNumber(n)
	case []float64:
		t := L.NewTable()
		for _, f := range n {
			t.Append(lua.LNumber(f))
		}
		return t
	default:
		return lua.LNil
	}
}
