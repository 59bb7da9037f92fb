package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"media-hub/internal/database"
	"media-hub/internal/logging"
	"media-hub/internal/metrics"
)

// errNoState means at least one of the persisted keys is missing.
var errNoState = errors.New("no complete persisted state")

// ReadState loads the persisted state from p. It returns an error wrapping
// errNoState when any key is absent, and a *PersistenceError when a key
// cannot be read or parsed.
func ReadState(ctx context.Context, p Persistence) (State, error) {
	return readState(ctx, p)
}

func readState(ctx context.Context, p Persistence) (State, error) {
	raw := make(map[string]string, 3)
	for _, key := range []string{KeyMedia, KeyUser, KeyNextID} {
		value, err := p.GetMetadata(ctx, key)
		if errors.Is(err, database.ErrKeyNotFound) {
			return State{}, errNoState
		}
		if err != nil {
			return State{}, &PersistenceError{Op: "read", Key: key, Err: err}
		}
		raw[key] = value
	}

	var state State
	if err := json.Unmarshal([]byte(raw[KeyMedia]), &state.Media); err != nil {
		return State{}, &PersistenceError{Op: "parse", Key: KeyMedia, Err: err}
	}
	if err := json.Unmarshal([]byte(raw[KeyUser]), &state.User); err != nil {
		return State{}, &PersistenceError{Op: "parse", Key: KeyUser, Err: err}
	}
	nextID, err := strconv.ParseInt(raw[KeyNextID], 10, 64)
	if err != nil {
		return State{}, &PersistenceError{Op: "parse", Key: KeyNextID, Err: err}
	}
	state.NextID = nextID

	if state.Media == nil {
		state.Media = []MediaRecord{}
	}
	return state, nil
}

// encodeState renders the three persisted entries.
func encodeState(state State) (map[string]string, error) {
	mediaJSON, err := json.Marshal(state.Media)
	if err != nil {
		return nil, &PersistenceError{Op: "encode", Key: KeyMedia, Err: err}
	}
	userJSON, err := json.Marshal(state.User)
	if err != nil {
		return nil, &PersistenceError{Op: "encode", Key: KeyUser, Err: err}
	}
	return map[string]string{
		KeyMedia:  string(mediaJSON),
		KeyUser:   string(userJSON),
		KeyNextID: strconv.FormatInt(state.NextID, 10),
	}, nil
}

// persistLocked writes the current state. Failures are logged and the
// store keeps running in memory. The write is detached from ctx so that a
// mutation which has been applied in memory is always written through.
func (s *Store) persistLocked(ctx context.Context) {
	if s.persistence == nil {
		return
	}

	entries, err := encodeState(State{Media: s.media, User: s.user, NextID: s.nextID})
	if err != nil {
		logPersistenceError(err, "keeping state in memory")
		return
	}

	if err := s.persistence.SetMetadataBatch(context.WithoutCancel(ctx), entries); err != nil {
		logPersistenceError(&PersistenceError{Op: "write", Err: err}, "keeping state in memory")
	}
}

func logPersistenceError(err error, action string) {
	if errors.Is(err, errNoState) {
		logging.Info("No persisted state found, %s", action)
		return
	}

	op := "read"
	var perr *PersistenceError
	if errors.As(err, &perr) {
		op = perr.Op
	}
	metrics.PersistenceErrors.WithLabelValues(op).Inc()
	logging.Error("Could not use persisted state (%v), %s", err, action)
}
