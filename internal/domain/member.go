package domain

// MediaStatus is a member's live audio/video/screen-share preference.
// Held only in memory.
type MediaStatus struct {
	Audio  bool `json:"audio"`
	Video  bool `json:"video"`
	Screen bool `json:"screen"`
}

// Member is one roster line as shown to clients.
type Member struct {
	UID    UserID `json:"uid"`
	PeerID string `json:"peerId"`
	MediaStatus
}

func NewMember(uid UserID, media MediaStatus) Member {
	return Member{UID: uid, PeerID: uid.PeerID(), MediaStatus: media}
}
