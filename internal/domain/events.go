// Package domain defines events for the event-driven architecture.
// Events replace the callback system and enable loose coupling between components.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventTrackSelected    EventType = "track.selected"
	EventTrackResolved    EventType = "track.resolved"
	EventTransportChanged EventType = "transport.changed"
	EventTrackProgress    EventType = "track.progress"
	EventLyricLineChanged EventType = "lyric.changed"
	EventStatusLog        EventType = "status.log"

	// Volume events
	EventVolumeChanged EventType = "volume.changed"
	EventMuteToggled   EventType = "mute.toggled"

	// Collection events
	EventCollectionChanged EventType = "collection.changed"
	EventFavoritesChanged  EventType = "favorites.changed"
	EventViewChanged       EventType = "view.changed"

	// User-visible notifications
	EventNotification EventType = "notification"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackSelectedEvent is published when selectTrack changes the active selection.
type TrackSelectedEvent struct {
	baseEvent
	Collection CollectionKind `json:"collection"`
	Index      int            `json:"index"`
	Track      Track          `json:"track"`
}

// Type returns the event type.
func (e TrackSelectedEvent) Type() EventType {
	return EventTrackSelected
}

// NewTrackSelectedEvent creates a new TrackSelectedEvent.
func NewTrackSelectedEvent(kind CollectionKind, index int, track Track) TrackSelectedEvent {
	return TrackSelectedEvent{
		baseEvent:  newBaseEvent(),
		Collection: kind,
		Index:      index,
		Track:      track,
	}
}

// TrackResolvedEvent is published when a remote track was resolved and written back.
type TrackResolvedEvent struct {
	baseEvent
	Collection CollectionKind `json:"collection"`
	Index      int            `json:"index"`
	Track      Track          `json:"track"`
}

// Type returns the event type.
func (e TrackResolvedEvent) Type() EventType {
	return EventTrackResolved
}

// NewTrackResolvedEvent creates a new TrackResolvedEvent.
func NewTrackResolvedEvent(kind CollectionKind, index int, track Track) TrackResolvedEvent {
	return TrackResolvedEvent{
		baseEvent:  newBaseEvent(),
		Collection: kind,
		Index:      index,
		Track:      track,
	}
}

// TransportChangedEvent is published on every transport state transition.
type TransportChangedEvent struct {
	baseEvent
	From  TransportState `json:"from"`
	To    TransportState `json:"to"`
	Track *Track         `json:"track,omitempty"`
}

// Type returns the event type.
func (e TransportChangedEvent) Type() EventType {
	return EventTransportChanged
}

// NewTransportChangedEvent creates a new TransportChangedEvent.
func NewTransportChangedEvent(from, to TransportState, track *Track) TransportChangedEvent {
	return TransportChangedEvent{
		baseEvent: newBaseEvent(),
		From:      from,
		To:        to,
		Track:     track,
	}
}

// TrackProgressEvent is published for every clock update and seek.
type TrackProgressEvent struct {
	baseEvent
	Clock    float64 `json:"clock"`
	Duration float64 `json:"duration"`
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType {
	return EventTrackProgress
}

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(clock, duration float64) TrackProgressEvent {
	return TrackProgressEvent{
		baseEvent: newBaseEvent(),
		Clock:     clock,
		Duration:  duration,
	}
}

// LyricLineChangedEvent is published when the active lyric line changes.
// The presentation layer scrolls the new line into the centre.
type LyricLineChangedEvent struct {
	baseEvent
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Type returns the event type.
func (e LyricLineChangedEvent) Type() EventType {
	return EventLyricLineChanged
}

// NewLyricLineChangedEvent creates a new LyricLineChangedEvent.
func NewLyricLineChangedEvent(index int, text string) LyricLineChangedEvent {
	return LyricLineChangedEvent{
		baseEvent: newBaseEvent(),
		Index:     index,
		Text:      text,
	}
}

// StatusLogEvent carries a cosmetic status line shown while a track without lyrics plays.
type StatusLogEvent struct {
	baseEvent
	Line string `json:"line"`
}

// Type returns the event type.
func (e StatusLogEvent) Type() EventType {
	return EventStatusLog
}

// NewStatusLogEvent creates a new StatusLogEvent.
func NewStatusLogEvent(line string) StatusLogEvent {
	return StatusLogEvent{
		baseEvent: newBaseEvent(),
		Line:      line,
	}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 `json:"volume"`
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{
		baseEvent: newBaseEvent(),
		Volume:    volume,
	}
}

// MuteToggledEvent is published when mute is toggled.
type MuteToggledEvent struct {
	baseEvent
	Muted bool `json:"muted"`
}

// Type returns the event type.
func (e MuteToggledEvent) Type() EventType {
	return EventMuteToggled
}

// NewMuteToggledEvent creates a new MuteToggledEvent.
func NewMuteToggledEvent(muted bool) MuteToggledEvent {
	return MuteToggledEvent{
		baseEvent: newBaseEvent(),
		Muted:     muted,
	}
}

// CollectionChangedEvent is published whenever a collection's contents change.
type CollectionChangedEvent struct {
	baseEvent
	Collection CollectionKind `json:"collection"`
	Tracks     []Track        `json:"tracks"`
}

// Type returns the event type.
func (e CollectionChangedEvent) Type() EventType {
	return EventCollectionChanged
}

// NewCollectionChangedEvent creates a new CollectionChangedEvent.
func NewCollectionChangedEvent(kind CollectionKind, tracks []Track) CollectionChangedEvent {
	return CollectionChangedEvent{
		baseEvent:  newBaseEvent(),
		Collection: kind,
		Tracks:     tracks,
	}
}

// FavoritesChangedEvent is published when a track is added to or removed from favorites.
type FavoritesChangedEvent struct {
	baseEvent
	Track Track `json:"track"`
	Added bool  `json:"added"`
}

// Type returns the event type.
func (e FavoritesChangedEvent) Type() EventType {
	return EventFavoritesChanged
}

// NewFavoritesChangedEvent creates a new FavoritesChangedEvent.
func NewFavoritesChangedEvent(track Track, added bool) FavoritesChangedEvent {
	return FavoritesChangedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Added:     added,
	}
}

// ViewChangedEvent is published when the viewed collection changes.
type ViewChangedEvent struct {
	baseEvent
	Collection CollectionKind `json:"collection"`
}

// Type returns the event type.
func (e ViewChangedEvent) Type() EventType {
	return EventViewChanged
}

// NewViewChangedEvent creates a new ViewChangedEvent.
func NewViewChangedEvent(kind CollectionKind) ViewChangedEvent {
	return ViewChangedEvent{
		baseEvent:  newBaseEvent(),
		Collection: kind,
	}
}

// NotificationKind classifies user-visible notifications.
type NotificationKind string

const (
	NotifyInfo             NotificationKind = "info"
	NotifyResolutionFailed NotificationKind = "resolution_failed"
	NotifyPlaybackRejected NotificationKind = "playback_rejected"
	NotifyStorageFailure   NotificationKind = "storage_failure"
	NotifyNetworkFailure   NotificationKind = "network_failure"
)

// NotificationEvent is a transient, non-fatal message for the user.
type NotificationEvent struct {
	baseEvent
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	Err     error            `json:"-"`
}

// Type returns the event type.
func (e NotificationEvent) Type() EventType {
	return EventNotification
}

// NewNotificationEvent creates a new NotificationEvent.
func NewNotificationEvent(kind NotificationKind, message string, err error) NotificationEvent {
	return NotificationEvent{
		baseEvent: newBaseEvent(),
		Kind:      kind,
		Message:   message,
		Err:       err,
	}
}
