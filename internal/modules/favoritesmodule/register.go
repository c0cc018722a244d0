package favoritesmodule

import (
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
)

// Auto-register the module when imported
func init() {
	Register()
}

// Register registers the favourites module with the module system
func Register() {
	modulemanager.Register(NewModule())
}
