package delivery

import (
	"errors"
	"strconv"
	"strings"

	"github.com/vidgrab/vidgrab/pkg/models"
)

// Button payload tokens. These are wire values; changing them breaks
// keyboards already shown to users.
const (
	TokenTypeVideo   = "type_video"
	TokenTypeAudio   = "type_audio"
	TokenBackToType  = "back_to_type"
	TokenCancel      = "cancel"
	qualityPrefix    = "quality_"
	typePrefix       = "type_"
)

// ErrUnknownAction is returned for a payload no keyboard ever produced.
var ErrUnknownAction = errors.New("unknown action payload")

// ActionKind discriminates parsed button payloads.
type ActionKind int

const (
	ActionChooseType ActionKind = iota
	ActionChooseQuality
	ActionBack
	ActionCancel
)

// Action is a parsed button payload.
type Action struct {
	Kind         ActionKind
	TrackType    models.TrackType
	QualityIndex int
}

// ParseAction decodes a button payload into an Action.
func ParseAction(data string) (Action, error) {
	switch {
	case data == TokenCancel:
		return Action{Kind: ActionCancel}, nil
	case data == TokenBackToType:
		return Action{Kind: ActionBack}, nil
	case strings.HasPrefix(data, typePrefix):
		t := models.TrackType(strings.TrimPrefix(data, typePrefix))
		if !t.Valid() {
			return Action{}, ErrUnknownAction
		}
		return Action{Kind: ActionChooseType, TrackType: t}, nil
	case strings.HasPrefix(data, qualityPrefix):
		index, err := strconv.Atoi(strings.TrimPrefix(data, qualityPrefix))
		if err != nil || index < 0 {
			return Action{}, ErrUnknownAction
		}
		return Action{Kind: ActionChooseQuality, QualityIndex: index}, nil
	default:
		return Action{}, ErrUnknownAction
	}
}
