package hxcore

// member is one own method or accessor of a constructor.
type member struct {
	name     string
	fn       MethodFunc
	get      Getter
	set      Setter
	accessor bool
	watchers map[string]WatchDecl
	hooks    map[Hook]HookDecl
}

// Constructor is the implementation side of a component type: a factory for
// its default values plus a declaration-ordered table of methods and
// accessors with their watch and hook annotations.
//
// Constructors are built once, usually at package level or by generated
// code, and compiled together with a Meta:
//
//	var Counter = hxcore.Define("b-counter", func() hxcore.Template {
//	    return hxcore.Template{"count": 0}
//	})
//
//	func init() {
//	    Counter.Method("onCount", onCount).Watch("count", hxcore.WatchDecl{})
//	    Counter.Method("load", load).Hook(hxcore.HookMounted)
//	}
type Constructor struct {
	name        string
	newTemplate func() Template
	members     []*member
	index       map[string]*member
}

// Define creates a constructor. newTemplate may be nil for components
// without template defaults.
func Define(name string, newTemplate func() Template) *Constructor {
	return &Constructor{
		name:        name,
		newTemplate: newTemplate,
		index:       make(map[string]*member),
	}
}

// Name returns the constructor's name.
func (c *Constructor) Name() string {
	return c.name
}

// New instantiates the template of default values.
func (c *Constructor) New() Template {
	if c.newTemplate == nil {
		return Template{}
	}
	tmpl := c.newTemplate()
	if tmpl == nil {
		return Template{}
	}
	return tmpl
}

// Method registers a method. Registering a name twice replaces the earlier
// member but keeps its declaration position.
func (c *Constructor) Method(name string, fn MethodFunc) *MemberBuilder {
	m := c.slot(name)
	m.fn = fn
	m.accessor = false
	m.get, m.set = nil, nil
	return &MemberBuilder{member: m}
}

// Accessor registers a getter/setter pair. Either may be nil. Watch and Hook
// declarations on an accessor apply to its synthesized "<name>Setter"
// method.
func (c *Constructor) Accessor(name string, get Getter, set Setter) *MemberBuilder {
	m := c.slot(name)
	m.fn = nil
	m.accessor = true
	m.get, m.set = get, set
	return &MemberBuilder{member: m}
}

func (c *Constructor) slot(name string) *member {
	if m, ok := c.index[name]; ok {
		return m
	}
	m := &member{
		name:     name,
		watchers: make(map[string]WatchDecl),
		hooks:    make(map[Hook]HookDecl),
	}
	c.index[name] = m
	c.members = append(c.members, m)
	return m
}

// MemberBuilder attaches watch and hook annotations to a member.
type MemberBuilder struct {
	member *member
}

// Watch makes the member a watcher of key. The handler field of decl is
// ignored; the member itself is the handler.
func (b *MemberBuilder) Watch(key string, decl WatchDecl) *MemberBuilder {
	decl.Handler = Handler{}
	b.member.watchers[key] = decl
	return b
}

// Hook runs the member during phase, after the named same-phase hooks.
func (b *MemberBuilder) Hook(phase Hook, after ...string) *MemberBuilder {
	b.member.hooks[phase] = HookDecl{Name: b.member.name, After: after}
	return b
}
