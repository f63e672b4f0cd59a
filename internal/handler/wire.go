package handler

import "github.com/google/wire"

// Handlers groups everything the router mounts.
type Handlers struct {
	Pairing *PairingHandler
	Drive   *DriveHandler
}

func ProvideHandlers(pairingHandler *PairingHandler, driveHandler *DriveHandler) *Handlers {
	return &Handlers{
		Pairing: pairingHandler,
		Drive:   driveHandler,
	}
}

var ProviderSet = wire.NewSet(
	NewPairingHandler,
	NewDriveHandler,
	ProvideHandlers,
)
