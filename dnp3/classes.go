package dnp3

// Classes is the union of static (Class 0) and event (Class 1/2/3) data
// requested for a full refresh ("Class1230" in the glossary). Restored from
// the original implementation's distinct EventClasses/Classes builder split
// (see SPEC_FULL.md Part D.4): startup integrity and periodic polls use
// Classes, unsolicited enable/disable and event-driven rescans use
// EventClasses.
type Classes struct {
	Class0 bool
	Class1 bool
	Class2 bool
	Class3 bool
}

// Class1230 is the canonical startup-integrity class set.
func Class1230() Classes {
	return Classes{Class0: true, Class1: true, Class2: true, Class3: true}
}

func (c Classes) None() bool {
	return !c.Class0 && !c.Class1 && !c.Class2 && !c.Class3
}

// EventClasses is the set of event classes 1/2/3, used for unsolicited
// enable/disable and event-class reads (never includes Class 0 static data).
type EventClasses struct {
	Class1 bool
	Class2 bool
	Class3 bool
}

func AllEventClasses() EventClasses  { return EventClasses{true, true, true} }
func NoEventClasses() EventClasses   { return EventClasses{} }

func (e EventClasses) None() bool { return !e.Class1 && !e.Class2 && !e.Class3 }

func (e EventClasses) AsClasses() Classes {
	return Classes{Class1: e.Class1, Class2: e.Class2, Class3: e.Class3}
}
