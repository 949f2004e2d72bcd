package main

import (
	"go.uber.org/fx"

	"github.com/harvest-finance/harvest/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
