package render

import (
	"net/url"
	"slices"
	"strings"
)

// Reserved input names of a browser post. Field paths never start with an
// underscore, so they cannot collide.
const (
	SessionFieldName = "_form_session"
	ActionFieldName  = "_action"
	AddFieldName     = "_add"
	RemoveFieldName  = "_remove"
)

// Action is the control pressed in a browser post.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionReset  Action = "reset"
	ActionClear  Action = "clear"
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// HiddenField is a hidden input emitted alongside the visible fields.
type HiddenField struct {
	Name  string
	Value string
}

// Post is the control part of a browser post: which button was pressed, for
// which array instance, and the session it claims to belong to.
type Post struct {
	Session string
	Action  Action
	Group   string
	Key     string
}

// InstanceRef is the value of a remove button for one array instance.
func InstanceRef(group, key string) string {
	return group + "." + key
}

// ParsePost reads the reserved inputs of values. Add and remove buttons win
// over the action button; anything unrecognised is a submit.
func ParsePost(values url.Values) Post {
	post := Post{Session: strings.TrimSpace(values.Get(SessionFieldName))}
	switch {
	case values.Get(AddFieldName) != "":
		post.Action = ActionAdd
		post.Group = values.Get(AddFieldName)
	case values.Get(RemoveFieldName) != "":
		post.Action = ActionRemove
		post.Group, post.Key, _ = strings.Cut(values.Get(RemoveFieldName), ".")
	default:
		switch Action(values.Get(ActionFieldName)) {
		case ActionReset:
			post.Action = ActionReset
		case ActionClear:
			post.Action = ActionClear
		default:
			post.Action = ActionSubmit
		}
	}
	return post
}

// IsReserved reports whether name is one of the control inputs.
func IsReserved(name string) bool {
	switch name {
	case SessionFieldName, ActionFieldName, AddFieldName, RemoveFieldName:
		return true
	}
	return false
}

// SessionFields merges the session id into extra (CSRF tokens and the like)
// and returns a copy. The session id wins over an extra of the same name;
// blank names are dropped.
func SessionFields(session string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra)+1)
	for name, value := range extra {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = value
		}
	}
	if session != "" {
		out[SessionFieldName] = session
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields lists fields by name for deterministic rendering.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	out := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, HiddenField{Name: name, Value: value})
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.SortFunc(out, func(a, b HiddenField) int { return strings.Compare(a.Name, b.Name) })
	return out
}
