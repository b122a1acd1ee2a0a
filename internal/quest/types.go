package quest

import (
	"sort"

	"questlog/internal/docstore"
)

const (
	KindQuest     docstore.Kind = "quest"
	KindObjective docstore.Kind = "objective"
	KindNote      docstore.Kind = "note"
)

// Status is shared by quests and objectives. Any status may move to any other.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusOnHold     Status = "on_hold"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusActive, StatusCompleted, StatusFailed, StatusOnHold:
		return true
	default:
		return false
	}
}

type Category string

const (
	CategoryMain     Category = "main"
	CategorySide     Category = "side"
	CategoryPersonal Category = "personal"
	CategoryFaction  Category = "faction"
	CategoryTutorial Category = "tutorial"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryMain, CategorySide, CategoryPersonal, CategoryFaction, CategoryTutorial:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Audience selects which of the two note collections is addressed.
type Audience string

const (
	AudiencePlayer   Audience = "player"
	AudienceDirector Audience = "director"
)

func (a Audience) IsValid() bool {
	return a == AudiencePlayer || a == AudienceDirector
}

const (
	DefaultStatus   = StatusNotStarted
	DefaultCategory = CategoryMain
	DefaultPriority = PriorityMedium
)

// Stored field names.
const (
	FieldID                = "id"
	FieldTitle             = "title"
	FieldDescription       = "description"
	FieldQuestGiver        = "questGiver"
	FieldLocation          = "location"
	FieldRewards           = "rewards"
	FieldStatus            = "status"
	FieldCategory          = "category"
	FieldPriority          = "priority"
	FieldRewardsClaimed    = "rewardsClaimed"
	FieldVisibleToPlayers  = "visibleToPlayers"
	FieldCreatedBy         = "createdBy"
	FieldCreatedTimestamp  = "createdTimestamp"
	FieldModifiedTimestamp = "modifiedTimestamp"
	FieldObjectiveIDs      = "objectiveIds"
	FieldObjectiveSeq      = "objectiveSeq"
	FieldPlayerNoteIDs     = "playerNoteIds"
	FieldDirectorNoteIDs   = "directorNoteIds"

	FieldQuestID = "questId"
	FieldOrder   = "order"

	FieldAuthorID  = "authorId"
	FieldContent   = "content"
	FieldCreatedAt = "createdAt"
	FieldParentID  = "parentId"
	FieldAudience  = "audience"
)

// Properties is a batch of field writes keyed by stored field name.
type Properties map[string]any

// Rejected lists the field names stripped from a write, sorted.
type Rejected []string

func (r Rejected) Contains(name string) bool {
	i := sort.SearchStrings(r, name)
	return i < len(r) && r[i] == name
}

func noteListField(a Audience) string {
	if a == AudienceDirector {
		return FieldDirectorNoteIDs
	}
	return FieldPlayerNoteIDs
}
