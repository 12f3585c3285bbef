package orch

import (
	"encoding/json"

	"github.com/dkeye/confer/internal/domain"
)

// Push event names.
const (
	EventJoined       = "joined"
	EventLeft         = "left"
	EventPreference   = "preference"
	EventReady        = "ready"
	EventMessage      = "message"
	EventSendSignal   = "send_signal"
	EventReturnSignal = "return_signal"
	EventTerminated   = "terminated"
)

type joinedEvent struct {
	Type        string             `json:"type"`
	UID         domain.UserID      `json:"uid"`
	PeerID      string             `json:"peerId"`
	Preferences domain.MediaStatus `json:"preferences"`
	Users       []domain.Member    `json:"users"`
	Creator     domain.UserID      `json:"creator"`
	IsChat      bool               `json:"isChat"`
}

type leftEvent struct {
	Type string        `json:"type"`
	UID  domain.UserID `json:"uid"`
}

type preferenceEvent struct {
	Type  string             `json:"type"`
	UID   domain.UserID      `json:"uid"`
	Value domain.MediaStatus `json:"value"`
}

type readyEvent struct {
	Type string        `json:"type"`
	UID  domain.UserID `json:"uid"`
}

type messageEvent struct {
	Type      string        `json:"type"`
	Message   string        `json:"message"`
	Sender    domain.UserID `json:"sender"`
	Receiver  domain.UserID `json:"receiver,omitempty"`
	Directed  bool          `json:"directed"`
	Timestamp int64         `json:"timestamp"`
}

type signalEvent struct {
	Type   string          `json:"type"`
	Signal json.RawMessage `json:"signal"`
	Sender domain.UserID   `json:"sender"`
	Target domain.UserID   `json:"target"`
	Audio  *bool           `json:"audio,omitempty"`
	Video  *bool           `json:"video,omitempty"`
}

type terminatedEvent struct {
	Type string `json:"type"`
}
