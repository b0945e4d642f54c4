// Package session holds the per-user transient state of an in-progress media
// request: the selection state machine's data and the store that owns it.
package session

import (
	"errors"

	"github.com/vidgrab/vidgrab/pkg/models"
)

var (
	// ErrNoFormats rejects a type choice whose candidate list is empty.
	ErrNoFormats = errors.New("no formats available for the chosen type")
	// ErrInvalidSelection rejects an out-of-range quality index or an action
	// that is not valid in the session's current state.
	ErrInvalidSelection = errors.New("invalid selection")
)

// State is the position of a session in the selection flow. Absence of a
// session is the implicit initial and terminal state; a Session value only
// exists between a successful metadata fetch and its deletion.
type State int

const (
	StateMetadataReady State = iota
	StateTypeChosen
	StateQualityChosen
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateMetadataReady:
		return "metadata_ready"
	case StateTypeChosen:
		return "type_chosen"
	case StateQualityChosen:
		return "quality_chosen"
	default:
		return "unknown"
	}
}

// Session tracks one user's selection flow. All fields are unexported;
// transitions go through the methods below, so a session can never carry a
// chosen format without a chosen type, or a chosen type without media info.
type Session struct {
	url       string
	info      *models.MediaInfo
	state     State
	trackType models.TrackType
	format    models.StreamDescriptor
}

// New creates a session in MetadataReady. A session cannot exist without
// resolved media info, so both arguments are required.
func New(url string, info *models.MediaInfo) *Session {
	return &Session{
		url:   url,
		info:  info,
		state: StateMetadataReady,
	}
}

// URL returns the source URL the session was created for.
func (s *Session) URL() string { return s.url }

// Info returns the immutable media snapshot.
func (s *Session) Info() *models.MediaInfo { return s.info }

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// ChooseType advances MetadataReady (or TypeChosen, when the user switches
// type before picking a quality) to TypeChosen. A type whose candidate list
// is empty is rejected and the state is left unchanged.
func (s *Session) ChooseType(t models.TrackType) error {
	if s.state == StateQualityChosen {
		return ErrInvalidSelection
	}
	if !t.Valid() {
		return ErrInvalidSelection
	}
	if len(s.info.Formats(t)) == 0 {
		return ErrNoFormats
	}

	s.trackType = t
	s.state = StateTypeChosen
	return nil
}

// ChooseQuality advances TypeChosen to QualityChosen by candidate index.
// An out-of-range index is rejected with no state change.
func (s *Session) ChooseQuality(index int) error {
	if s.state != StateTypeChosen {
		return ErrInvalidSelection
	}

	formats := s.info.Formats(s.trackType)
	if index < 0 || index >= len(formats) {
		return ErrInvalidSelection
	}

	s.format = formats[index]
	s.state = StateQualityChosen
	return nil
}

// Back returns a TypeChosen session to MetadataReady so the type prompt can
// be shown again. Valid only from TypeChosen.
func (s *Session) Back() error {
	if s.state != StateTypeChosen {
		return ErrInvalidSelection
	}

	s.trackType = ""
	s.state = StateMetadataReady
	return nil
}

// TrackType returns the chosen type. Meaningful only after ChooseType.
func (s *Session) TrackType() models.TrackType { return s.trackType }

// Selection returns the chosen type and descriptor. ok is false until the
// session reaches QualityChosen, which is the orchestrator's precondition.
func (s *Session) Selection() (models.TrackType, models.StreamDescriptor, bool) {
	if s.state != StateQualityChosen {
		return "", models.StreamDescriptor{}, false
	}
	return s.trackType, s.format, true
}
