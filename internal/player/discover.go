package player

import (
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/samber/lo"
)

const mprisPrefix = "org.mpris.MediaPlayer2."

// ListServices returns the MPRIS players currently on the bus.
func ListServices(bus *dbus.Conn) ([]string, error) {
	var names []string
	err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	services := filterServices(names)
	sort.Strings(services)
	return services, nil
}

func filterServices(names []string) []string {
	return lo.Filter(names, func(name string, _ int) bool {
		return strings.HasPrefix(name, mprisPrefix) && len(name) > len(mprisPrefix)
	})
}

// ResolveService expands a short player name ("spotify") to its bus name.
func ResolveService(name string) string {
	if name == "" || strings.HasPrefix(name, mprisPrefix) {
		return name
	}
	return mprisPrefix + name
}

func Identity(bus *dbus.Conn, serviceName string) string {
	obj := bus.Object(serviceName, mprisPath)
	variant, err := obj.GetProperty("org.mpris.MediaPlayer2.Identity")
	if err != nil {
		return ""
	}

	identity, ok := variant.Value().(string)
	if !ok {
		return ""
	}

	return identity
}
