package service

import "errors"

var (
	ErrActivityNotFound = errors.New("Activity not found")
	ErrAlreadyJoined    = errors.New("Already joined this activity")
	ErrNotParticipant   = errors.New("Not a participant of this activity")
	ErrConcurrentUpdate = errors.New("Activity was modified concurrently, please retry")
	ErrInvalidCapacity  = errors.New("max_participants must be at least 1")

	ErrUserNotFound = errors.New("User not found")
	ErrEmailTaken   = errors.New("Email already exists")

	ErrChatNotFound   = errors.New("Chat not found")
	ErrNotChatMember  = errors.New("User is not a member of this chat")
	ErrAlreadyMember  = errors.New("User is already a member of this chat")
	ErrMemberNotFound = errors.New("User is not a member of this chat")

	ErrAvatarStorageDisabled = errors.New("Avatar storage is not configured")
	ErrUnsupportedImage      = errors.New("Unsupported image type")
)

// errStaleCounter aborts a transaction whose compare-and-swap on the
// participant counter lost a race; the caller retries.
var errStaleCounter = errors.New("stale participant counter")
