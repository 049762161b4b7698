package model

// Rule is one Clash routing rule. Value is empty for MATCH.
type Rule struct {
	Type   string // e.g. "MATCH", "DOMAIN-SUFFIX"
	Value  string
	Action string // DIRECT/REJECT/group name
}

func (r Rule) String() string {
	if r.Value == "" {
		return r.Type + "," + r.Action
	}
	return r.Type + "," + r.Value + "," + r.Action
}
