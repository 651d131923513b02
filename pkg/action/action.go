// Package action models the units of remote work in a deployment.
package action

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// TypeUpload is the discriminator of upload objects in the actions list.
const TypeUpload = "upload"

// Action is either a Command or an Upload.
type Action interface {
	isAction()
	fmt.Stringer
}

// Command is a shell command executed on the remote host.
type Command string

func (Command) isAction() {}

func (c Command) String() string { return string(c) }

// Upload copies a local file to a path on the remote host, overwriting it.
type Upload struct {
	Source string
	Target string
}

func (Upload) isAction() {}

func (u Upload) String() string { return fmt.Sprintf("upload %s -> %s", u.Source, u.Target) }

type rawObject struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Translate converts the raw actions list of a deployment file into Actions.
// Strings become Commands and {"type":"upload"} objects become Uploads.
// Anything else is logged and dropped.
// TODO: decide whether unrecognized action objects should fail validation instead of being dropped.
func Translate(raw []json.RawMessage, logger zerolog.Logger) []Action {
	actions := make([]Action, 0, len(raw))

	for i, item := range raw {
		var cmd *string
		if err := json.Unmarshal(item, &cmd); err == nil && cmd != nil {
			actions = append(actions, Command(*cmd))
			continue
		}

		var obj *rawObject
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			logger.Warn().
				Int("index", i).
				RawJSON("action", item).
				Msg("dropping action that is neither a command nor an object")
			continue
		}

		if obj.Type != TypeUpload {
			logger.Warn().
				Int("index", i).
				Str("type", obj.Type).
				Msg("dropping action with unrecognized type")
			continue
		}

		actions = append(actions, Upload{Source: obj.From, Target: obj.To})
	}

	return actions
}
