package main

import (
	"testing"

	"github.com/manoam/stocks-backend/internal/app"
	_ "github.com/manoam/stocks-backend/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected test mode to be active")
	}
	main()
}
