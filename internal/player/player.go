package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"

	// seekThresholdMillis is how far a polled position may drift from the
	// extrapolated one before it counts as a seek
	seekThresholdMillis = 1500
)

type Event int

const (
	EventTrackChanged Event = iota
	EventSeeked
	EventPlaybackStateChanged
)

type EventData struct {
	Type     Event
	Track    *track.Info
	Position int64
	Playing  bool
}

// State is the last known player state. Position is extrapolated between
// polls while playing, so a frame loop can sample it without a bus round
// trip.
type State struct {
	Track              *track.Info
	PositionMillis     int64
	Playing            bool
	lastPositionUpdate time.Time
	lastPositionMillis int64
}

// PositionAt extrapolates the position to now.
func (s *State) PositionAt(now time.Time) int64 {
	if !s.Playing || s.lastPositionUpdate.IsZero() {
		return s.PositionMillis
	}
	return s.lastPositionMillis + now.Sub(s.lastPositionUpdate).Milliseconds()
}

func (s *State) DetectSeek(newPosition int64, now time.Time) bool {
	if s.lastPositionUpdate.IsZero() {
		return false
	}

	diff := newPosition - s.PositionAt(now)
	if diff < 0 {
		diff = -diff
	}

	return diff > seekThresholdMillis
}

func (s *State) UpdatePosition(pos int64, now time.Time) {
	s.PositionMillis = pos
	s.lastPositionMillis = pos
	s.lastPositionUpdate = now
}

// Service follows one MPRIS player on the session bus.
type Service struct {
	bus        *dbus.Conn
	service    string
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	eventChan  chan EventData
	state      *State
	mu         sync.RWMutex
}

func NewService(bus *dbus.Conn, mprisService string) (*Service, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if mprisService == "" {
		return nil, errors.New("empty mpris service name")
	}

	s := &Service{
		bus:       bus,
		service:   mprisService,
		eventChan: make(chan EventData, 16),
		state:     &State{},
	}

	return s, nil
}

func (s *Service) Name() string {
	return s.service
}

func (s *Service) Start() error {
	signalChan := make(chan *dbus.Signal, 10)
	s.signalChan = signalChan
	s.stopChan = make(chan struct{})

	s.bus.Signal(signalChan)

	matchPropertiesChanged := fmt.Sprintf(
		"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
		s.service, mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
		s.service, mprisPlayerIface, mprisPath,
	)

	err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchPropertiesChanged).Err
	if err != nil {
		return fmt.Errorf("failed to add properties match: %w", err)
	}

	err = s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchSeeked).Err
	if err != nil {
		return fmt.Errorf("failed to add seeked match: %w", err)
	}

	go s.signalLoop()

	return nil
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.stopChan != nil {
			close(s.stopChan)
		}
	})
}

func (s *Service) Events() <-chan EventData {
	return s.eventChan
}

func (s *Service) GetCurrentTrack() (*track.Info, error) {
	obj := s.bus.Object(s.service, mprisPath)
	if obj == nil {
		return nil, errors.New("nil dbus object")
	}

	prop, err := obj.GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	info := trackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, fmt.Errorf("missing title or artist in metadata (title=%q, artist=%q)", info.Title, info.Artist)
	}

	return info, nil
}

// GetCurrentPosition asks the player directly, in milliseconds.
func (s *Service) GetCurrentPosition() (int64, error) {
	obj := s.bus.Object(s.service, mprisPath)
	if obj == nil {
		return 0, errors.New("nil dbus object")
	}

	prop, err := obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	positionMicroseconds, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}

	return microsToMillis(positionMicroseconds), nil
}

func (s *Service) GetPlaybackStatus() (bool, error) {
	obj := s.bus.Object(s.service, mprisPath)
	prop, err := obj.GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return false, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := prop.Value().(string)
	if !ok {
		return false, fmt.Errorf("unexpected playback status type %T", prop.Value())
	}
	return status == "Playing", nil
}

// Poll refreshes track, position and playback status, emitting events for
// anything that changed behind our back.
func (s *Service) Poll() error {
	trk, err := s.GetCurrentTrack()
	if err != nil {
		return err
	}

	pos, err := s.GetCurrentPosition()
	if err != nil {
		return err
	}

	playing, err := s.GetPlaybackStatus()
	if err != nil {
		logger.Debug("mpris: %v", err)
		playing = true
	}

	now := time.Now()

	s.mu.Lock()
	currentTrack := s.state.Track
	seekDetected := s.state.DetectSeek(pos, now)
	s.state.UpdatePosition(pos, now)
	s.state.Playing = playing

	if !trk.IsSameTrack(currentTrack) {
		s.state.Track = trk
		s.mu.Unlock()
		s.emitEvent(EventData{Type: EventTrackChanged, Track: trk, Position: pos, Playing: playing})
		return nil
	}
	s.mu.Unlock()

	if seekDetected {
		s.emitEvent(EventData{Type: EventSeeked, Position: pos})
	}

	return nil
}

// CurrentPositionMillis is the extrapolated position; call Poll periodically
// to keep it honest.
func (s *Service) CurrentPositionMillis() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos := s.state.PositionAt(time.Now())
	if d := s.durationLocked(); d > 0 && pos > d {
		return d
	}
	return pos
}

func (s *Service) DurationMillis() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durationLocked()
}

func (s *Service) durationLocked() int64 {
	if s.state.Track == nil {
		return 0
	}
	return s.state.Track.DurationMillis
}

// SeekTo moves the player with SetPosition, which needs the current track id.
// Players that report none get a relative Seek instead.
func (s *Service) SeekTo(ms int64) error {
	ms = max(0, ms)

	s.mu.RLock()
	var trackID string
	if s.state.Track != nil {
		trackID = s.state.Track.TrackID
	}
	current := s.state.PositionAt(time.Now())
	s.mu.RUnlock()

	obj := s.bus.Object(s.service, mprisPath)
	var call *dbus.Call
	if trackID != "" && dbus.ObjectPath(trackID).IsValid() {
		call = obj.Call(mprisPlayerIface+".SetPosition", 0, dbus.ObjectPath(trackID), ms*1000)
	} else {
		call = obj.Call(mprisPlayerIface+".Seek", 0, (ms-current)*1000)
	}
	if call.Err != nil {
		return fmt.Errorf("failed to seek %s: %w", s.service, call.Err)
	}

	s.mu.Lock()
	s.state.UpdatePosition(ms, time.Now())
	s.mu.Unlock()

	return nil
}

func (s *Service) TogglePause() error {
	call := s.bus.Object(s.service, mprisPath).Call(mprisPlayerIface+".PlayPause", 0)
	if call.Err != nil {
		return fmt.Errorf("failed to toggle playback: %w", call.Err)
	}

	now := time.Now()
	s.mu.Lock()
	s.state.UpdatePosition(s.state.PositionAt(now), now)
	s.state.Playing = !s.state.Playing
	s.mu.Unlock()

	return nil
}

func (s *Service) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Playing
}

func (s *Service) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case "org.mpris.MediaPlayer2.Player.Seeked":
		s.handleSeeked(sig)
	}
}

func (s *Service) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != mprisPlayerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if metadataVariant, exists := changedProps["Metadata"]; exists {
		metadata, ok := metadataVariant.Value().(map[string]dbus.Variant)
		if !ok {
			return
		}

		info := trackFromMetadata(metadata)
		if info.IsValid() {
			s.mu.Lock()
			s.state.Track = info
			s.state.UpdatePosition(0, time.Now())
			s.mu.Unlock()

			s.emitEvent(EventData{Type: EventTrackChanged, Track: info})
		}
	}

	if playbackVariant, exists := changedProps["PlaybackStatus"]; exists {
		status, ok := playbackVariant.Value().(string)
		if ok {
			playing := status == "Playing"
			now := time.Now()
			s.mu.Lock()
			s.state.UpdatePosition(s.state.PositionAt(now), now)
			s.state.Playing = playing
			s.mu.Unlock()

			s.emitEvent(EventData{Type: EventPlaybackStateChanged, Playing: playing})
		}
	}
}

func (s *Service) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}

	positionMicroseconds, ok := sig.Body[0].(int64)
	if !ok {
		return
	}

	pos := microsToMillis(positionMicroseconds)

	s.mu.Lock()
	s.state.UpdatePosition(pos, time.Now())
	s.mu.Unlock()

	s.emitEvent(EventData{Type: EventSeeked, Position: pos})
}

func (s *Service) emitEvent(event EventData) {
	select {
	case s.eventChan <- event:
	default:
	}
}

func trackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:          extractString(metadata, "xesam:title"),
		Artist:         extractArtist(metadata, "xesam:artist"),
		Album:          extractString(metadata, "xesam:album"),
		ArtworkURL:     extractString(metadata, "mpris:artUrl"),
		TrackID:        extractTrackID(metadata, "mpris:trackid"),
		DurationMillis: extractDurationMillis(metadata, "mpris:length"),
	}
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	text, ok := variant.Value().(string)
	if ok {
		return text
	}

	return ""
}

// mpris:trackid is an object path, though some players send a plain string
func extractTrackID(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case dbus.ObjectPath:
		return string(typed)
	case string:
		return typed
	default:
		return ""
	}
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
		return ""
	case string:
		return typed
	default:
		return ""
	}
}

func extractDurationMillis(metadata map[string]dbus.Variant, key string) int64 {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		return microsToMillis(typed)
	case uint64:
		return int64(typed / 1000)
	default:
		return 0
	}
}

func microsToMillis(us int64) int64 {
	if us <= 0 {
		return 0
	}
	return us / 1000
}

func (s *Service) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// return a copy of the state
	stateCopy := State{
		PositionMillis: s.state.PositionAt(time.Now()),
		Playing:        s.state.Playing,
	}

	if s.state.Track != nil {
		trackCopy := *s.state.Track
		stateCopy.Track = &trackCopy
	}

	return stateCopy
}
