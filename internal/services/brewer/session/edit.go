package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TagsPath is the one field whose text value is converted, into a tag list.
const TagsPath = "identity.tags"

var fieldPath = regexp.MustCompile(`^[a-z][A-Za-z0-9]*(\.([a-z][A-Za-z0-9]*|[0-9]+))*$`)

// Direction moves an action within the list.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// SetField assigns value at a dotted path of the blueprint JSON, such as
// "identity.name" or "actions.0.text". Numeric segments index existing array
// elements. Unknown fields, mismatched types and a lower schema version are
// rejected with INVALID_FIELD.
func (s *Session) SetField(path string, value any) error {
	return s.run(func() (EventKind, error) {
		updated, err := setField(s.blueprint, path, value)
		if err != nil {
			return "", err
		}
		s.blueprint = updated
		s.dirty = true
		return EventEdited, nil
	})
}

// AddAction appends a blank trait.
func (s *Session) AddAction() error {
	return s.run(func() (EventKind, error) {
		s.blueprint.Actions = append(s.blueprint.Actions, blueprint.NewAction())
		s.dirty = true
		return EventEdited, nil
	})
}

// RemoveAction deletes the action at index. Out of range indexes are ignored.
func (s *Session) RemoveAction(index int) error {
	return s.run(func() (EventKind, error) {
		actions := s.blueprint.Actions
		if index < 0 || index >= len(actions) {
			return "", nil
		}
		s.blueprint.Actions = append(actions[:index:index], actions[index+1:]...)
		s.dirty = true
		return EventEdited, nil
	})
}

// MoveAction moves the action at index one step. Moves past either end are
// ignored.
func (s *Session) MoveAction(index int, direction Direction) error {
	return s.run(func() (EventKind, error) {
		target := index + 1
		if direction == Up {
			target = index - 1
		}
		actions := s.blueprint.Actions
		if index < 0 || index >= len(actions) || target < 0 || target >= len(actions) {
			return "", nil
		}
		actions[index], actions[target] = actions[target], actions[index]
		s.dirty = true
		return EventEdited, nil
	})
}

func setField(b blueprint.Blueprint, path string, value any) (blueprint.Blueprint, error) {
	path = strings.TrimSpace(path)
	if !fieldPath.MatchString(path) {
		return b, invalidField(path, fmt.Errorf("malformed path"))
	}
	if path == TagsPath {
		if text, ok := value.(string); ok {
			value = blueprint.SplitTags(text)
		}
	}

	data, err := encodeBlueprint(b)
	if err != nil {
		return b, err
	}
	if err := checkIndexes(data, path); err != nil {
		return b, invalidField(path, err)
	}
	data, err = sjson.SetBytes(data, path, value)
	if err != nil {
		return b, invalidField(path, err)
	}

	var updated blueprint.Blueprint
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&updated); err != nil {
		return b, invalidField(path, err)
	}
	// Field names decode case-insensitively; the canonical form must still
	// contain the exact path.
	canonical, err := encodeBlueprint(updated)
	if err != nil {
		return b, err
	}
	if !gjson.GetBytes(canonical, path).Exists() {
		return b, invalidField(path, fmt.Errorf("unknown field"))
	}
	if updated.Meta.SchemaVersion < b.Meta.SchemaVersion {
		return b, invalidField(path, fmt.Errorf("schema version cannot decrease"))
	}
	seen := make(map[string]bool, len(updated.Attachments))
	for _, attachment := range updated.Attachments {
		if seen[attachment.Ref] {
			return b, invalidField(path, fmt.Errorf("duplicate attachment %s", attachment.Ref))
		}
		seen[attachment.Ref] = true
	}
	restoreInlineRolls(&updated, blueprint.Clone(b), path)
	return updated, nil
}

func encodeBlueprint(b blueprint.Blueprint) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(b); err != nil {
		return nil, fmt.Errorf("encode blueprint: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// restoreInlineRolls puts back the original bytes of every inline roll the
// path did not address. Encoding compacts raw JSON, so a round trip would
// otherwise rewrite rolls the edit never touched.
func restoreInlineRolls(updated *blueprint.Blueprint, original blueprint.Blueprint, path string) {
	if len(updated.Actions) != len(original.Actions) {
		return
	}
	for i, action := range original.Actions {
		rolls := updated.Actions[i].InlineRolls
		if len(rolls) != len(action.InlineRolls) {
			continue
		}
		for j, roll := range action.InlineRolls {
			rollPath := "actions." + strconv.Itoa(i) + ".inlineRolls." + strconv.Itoa(j)
			if rollPath == path || strings.HasPrefix(rollPath, path+".") || strings.HasPrefix(path, rollPath+".") {
				continue
			}
			rolls[j] = roll
		}
	}
}

// checkIndexes rejects numeric segments that do not address an existing
// array element.
func checkIndexes(data []byte, path string) error {
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		index, err := strconv.Atoi(segment)
		if err != nil {
			continue
		}
		parent := strings.Join(segments[:i], ".")
		array := gjson.GetBytes(data, parent)
		if !array.IsArray() {
			return fmt.Errorf("%s is not a list", parent)
		}
		if index >= len(array.Array()) {
			return fmt.Errorf("index %d out of range for %s", index, parent)
		}
	}
	return nil
}

func invalidField(path string, cause error) error {
	err := apperrors.Wrap(apperrors.CodeInvalidField, "invalid field "+path, cause)
	err.Metadata = map[string]string{"path": path}
	return err
}
