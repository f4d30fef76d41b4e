package source

// https://regauth.standards.ieee.org/standards-ra-web/pub/view.html#registries
const (
	// RemoteIeeeOUI is the MA-L registry in text form. Only MA-L assignments
	// map to a 24 bit prefix; MA-M and MA-S blocks are longer.
	RemoteIeeeOUI string = "https://standards-oui.ieee.org/oui/oui.txt"

	// EnvDataURL overrides the default registry location.
	EnvDataURL = "DATA_URL"
)
