package quest

import "sort"

// fieldRules decides which values may be persisted for one entity kind.
type fieldRules struct {
	enums map[string]func(string) bool
	bools map[string]bool
	texts map[string]bool
	// immutable fields are stamped by the manager and never taken from callers.
	immutable map[string]bool
	// managed fields are only written by the manager's collection operations.
	managed map[string]bool
}

var questRules = fieldRules{
	enums: map[string]func(string) bool{
		FieldStatus:   func(s string) bool { return Status(s).IsValid() },
		FieldCategory: func(s string) bool { return Category(s).IsValid() },
		FieldPriority: func(s string) bool { return Priority(s).IsValid() },
	},
	bools: map[string]bool{
		FieldRewardsClaimed:   true,
		FieldVisibleToPlayers: true,
	},
	texts: map[string]bool{
		FieldTitle:             true,
		FieldDescription:       true,
		FieldQuestGiver:        true,
		FieldLocation:          true,
		FieldRewards:           true,
		FieldModifiedTimestamp: true,
	},
	immutable: map[string]bool{
		FieldID:               true,
		FieldCreatedBy:        true,
		FieldCreatedTimestamp: true,
	},
	managed: map[string]bool{
		FieldObjectiveIDs:    true,
		FieldObjectiveSeq:    true,
		FieldPlayerNoteIDs:   true,
		FieldDirectorNoteIDs: true,
	},
}

var objectiveRules = fieldRules{
	enums: map[string]func(string) bool{
		FieldStatus: func(s string) bool { return Status(s).IsValid() },
	},
	texts: map[string]bool{
		FieldTitle:             true,
		FieldDescription:       true,
		FieldModifiedTimestamp: true,
	},
	immutable: map[string]bool{
		FieldID:               true,
		FieldQuestID:          true,
		FieldCreatedTimestamp: true,
	},
	managed: map[string]bool{
		FieldOrder:           true,
		FieldPlayerNoteIDs:   true,
		FieldDirectorNoteIDs: true,
	},
}

var noteRules = fieldRules{
	bools: map[string]bool{
		FieldVisibleToPlayers: true,
	},
	texts: map[string]bool{
		FieldContent: true,
	},
	immutable: map[string]bool{
		FieldID:        true,
		FieldAuthorID:  true,
		FieldCreatedAt: true,
		FieldParentID:  true,
		FieldAudience:  true,
	},
}

// sanitize strips every key that must not be persisted and reports it.
// Enum values are normalized to plain strings.
func (r fieldRules) sanitize(props Properties) (map[string]any, Rejected) {
	out := make(map[string]any, len(props))
	var rejected Rejected
	for name, v := range props {
		if ok, norm := r.accept(name, v); ok {
			out[name] = norm
		} else {
			rejected = append(rejected, name)
		}
	}
	sort.Strings(rejected)
	return out, rejected
}

func (r fieldRules) accept(name string, v any) (bool, any) {
	if r.managed[name] || r.immutable[name] {
		return false, nil
	}
	if valid, ok := r.enums[name]; ok {
		s, isString := enumString(v)
		if !isString || !valid(s) {
			return false, nil
		}
		return true, s
	}
	if r.bools[name] {
		if _, ok := v.(bool); !ok {
			return false, nil
		}
	}
	if r.texts[name] {
		if _, ok := v.(string); !ok {
			return false, nil
		}
	}
	return true, v
}

func enumString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case Status:
		return string(x), true
	case Category:
		return string(x), true
	case Priority:
		return string(x), true
	default:
		return "", false
	}
}
