package remoteserver

import "errors"

// Close codes for the integration WebSocket, mirroring the 4000 range the remote-control device's own firmware uses
// for application-level close reasons.
const (
	CloseUnknownError  = 4000
	CloseDecodeError   = 4001
	CloseSetupRequired = 4002
	CloseSetupFailed   = 4003
	CloseSendOverrun   = 4004
)

// Sentinel errors for session/setup failure modes. They are not mapped to the close codes above.
var (
	ErrDecodeError     = errors.New("payload decode error")
	ErrSetupRequired   = errors.New("driver setup has not completed")
	ErrSetupFailed     = errors.New("driver setup failed")
	ErrAlreadyReady    = errors.New("session is already past setup")
	ErrSessionClosing  = errors.New("session is closing")
	ErrUnknownEntity   = errors.New("entity unknown to this bridge")
	ErrHubAuthRejected = errors.New("hub rejected the offered credentials")
)
