package order

import (
	"go.uber.org/fx"
)

// Module wires the order handlers onto the router.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)
