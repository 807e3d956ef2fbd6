package entity

// Effect is the outcome of reconciling one candidate record.
type Effect int

const (
	Unchanged Effect = iota
	Inserted
	Updated
)

func (e Effect) String() string {
	switch e {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// EffectCounts tallies reconcile effects for one collection.
type EffectCounts struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

func (c *EffectCounts) Add(e Effect) {
	switch e {
	case Inserted:
		c.Inserted++
	case Updated:
		c.Updated++
	default:
		c.Unchanged++
	}
}

// Writes is the number of store writes the counted effects issued.
func (c EffectCounts) Writes() int {
	return c.Inserted + c.Updated
}
