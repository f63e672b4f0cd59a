package service

import "github.com/google/wire"

var ProviderSet = wire.NewSet(
	NewPairingService,
	NewDriveAccountService,
	NewSigningService,
	NewProtectionService,
	NewPortfolioService,
)
