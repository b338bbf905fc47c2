package vision

import "fmt"

// buildPrompt renders the fixed extraction instruction. The client name is
// user-supplied context and is passed through verbatim.
func buildPrompt(clientName string) string {
	return fmt.Sprintf(`Analyze this photo of one or more electronic devices for a client named '%s'.

For EVERY physical device visible in the image, extract the following if printed on its label:
Make, Model, Serial Number, Part Number, Dell Part Number (DP/N), Vendor Product Number (VPN), and MAC Address.

Return ONLY a JSON array with one object per device, using exactly these keys:
"make", "model", "serial_number", "part_number", "dp_n", "vpn", "mac_address".

IMPORTANT: If the Make or Model is not directly printed on the device, examine the
MAC Address and any part numbers closely. The Organizationally Unique Identifier
(OUI) of a MAC address indicates the manufacturer, and a part number can pinpoint
the specific model. If a value is not found and cannot be reliably inferred, use
"N/A" as its value rather than omitting the key. Ensure MAC addresses are complete
and correctly formatted when found.`, clientName)
}
