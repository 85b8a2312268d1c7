package pool

import "net/http"

// VendorPinHeader is the single-request override that restricts selection
// to pool entries matching a vendor.
const VendorPinHeader = "x-rc-provider"

// VendorPinFromHeaders reads the vendor pin override, if present.
func VendorPinFromHeaders(h http.Header) string {
	return h.Get(VendorPinHeader)
}
