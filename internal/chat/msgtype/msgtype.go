// Package msgtype validates the metadata payload carried by each message
// type and classifies legacy rows written before types were recorded.
package msgtype

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cuihairu/cohortchat/internal/chat"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	loadOnce sync.Once
	loadErr  error
	schemas  map[chat.MessageType]*gojsonschema.Schema
)

func load() error {
	loadOnce.Do(func() {
		schemas = map[chat.MessageType]*gojsonschema.Schema{}
		for _, t := range []chat.MessageType{chat.TypeText, chat.TypeImage, chat.TypeSticker, chat.TypeSchedule, chat.TypeAlert} {
			data, err := schemaFS.ReadFile("schemas/" + string(t) + ".json")
			if err != nil {
				loadErr = err
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				loadErr = fmt.Errorf("schema %s: %w", t, err)
				return
			}
			schemas[t] = s
		}
	})
	return loadErr
}

// Validate checks metadata against the schema of t. Empty metadata is
// treated as an empty object.
func Validate(t chat.MessageType, metadata []byte) error {
	if !t.Valid() {
		return chat.Validationf("unknown message type %q", t)
	}
	if err := load(); err != nil {
		return err
	}
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	res, err := schemas[t].Validate(gojsonschema.NewBytesLoader(metadata))
	if err != nil {
		return chat.Validationf("metadata: %v", err)
	}
	if !res.Valid() {
		var msgs []string
		for i, e := range res.Errors() {
			if i >= 5 {
				break
			}
			msgs = append(msgs, e.String())
		}
		return chat.Validationf("%s metadata: %s", t, strings.Join(msgs, "; "))
	}
	return nil
}

// Parse resolves a client supplied type; empty means text.
func Parse(s string) (chat.MessageType, error) {
	t := chat.MessageType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return chat.TypeText, nil
	}
	if !t.Valid() {
		return "", chat.Validationf("unknown message type %q", s)
	}
	return t, nil
}

var legacyImage = regexp.MustCompile(`(?i)^https?://\S+\.(jpe?g|png|gif|webp)(\?\S*)?$|^/uploads/\S+$`)

// Legacy classifies a row stored without a type: bare image URLs become
// image messages, everything else text.
func Legacy(content string) chat.MessageType {
	if legacyImage.MatchString(strings.TrimSpace(content)) {
		return chat.TypeImage
	}
	return chat.TypeText
}

// Resolve returns the stored type, falling back to Legacy for untyped rows.
func Resolve(stored, content string) chat.MessageType {
	if stored == "" {
		return Legacy(content)
	}
	return chat.MessageType(stored)
}
