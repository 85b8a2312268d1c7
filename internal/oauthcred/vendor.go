package oauthcred

// AuthCodeStyle selects how the authorization URL / token exchange is
// built for a vendor.
type AuthCodeStyle string

const (
	StyleStandard AuthCodeStyle = "standard"
	StyleIFlowWeb AuthCodeStyle = "web"
	StyleLegacy   AuthCodeStyle = "legacy"
)

// VendorProfile gathers the per-vendor nuances of an OAuth flow:
// endpoints, PKCE usage, auth-code style, post-activation behavior, and
// refresh retry policy.
type VendorProfile struct {
	Vendor VendorID

	DeviceAuthURL string // device-code flow (Qwen)
	AuthURL       string
	TokenURL      string
	UserInfoURL   string // fetched after token exchange to harvest apiKey/email

	Scope    string
	ClientID string

	Style       AuthCodeStyle
	UsesPKCE    bool
	UsesDevice  bool
	BasicAuth   bool // send Authorization: Basic id:secret on token exchange

	ActivatePostToken bool // fetch user-info and harvest apiKey/email

	RefreshMaxAttempts int // default 3, iFlow uses 1 (no retry on refresh failure)
	CallbackPort       int // 0 = ephemeral
	CallbackPath       string

	GoogleOffline bool // force access_type=offline&prompt=consent&include_granted_scopes=true
}

// Profiles is the vendor table generalized from the teacher's
// single-vendor (Google) internal/oauth/manager.go into a small
// per-vendor table covering each supported OAuth provider's quirks.
var Profiles = map[VendorID]VendorProfile{
	VendorGoogle: {
		Vendor:             VendorGoogle,
		AuthURL:            "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:           "https://oauth2.googleapis.com/token",
		UserInfoURL:        "https://www.googleapis.com/oauth2/v2/userinfo",
		Style:              StyleStandard,
		UsesPKCE:           true,
		RefreshMaxAttempts: 3,
		CallbackPort:       8080,
		CallbackPath:       "/oauth2callback",
		GoogleOffline:      true,
	},
	VendorQwen: {
		Vendor:             VendorQwen,
		DeviceAuthURL:      "https://chat.qwen.ai/api/v1/oauth2/device/code",
		TokenURL:           "https://chat.qwen.ai/api/v1/oauth2/token",
		Style:              StyleStandard,
		UsesPKCE:           true,
		UsesDevice:         true,
		RefreshMaxAttempts: 3,
	},
	VendorIFlow: {
		Vendor:             VendorIFlow,
		AuthURL:            "https://iflow.cn/oauth/authorize",
		TokenURL:           "https://iflow.cn/oauth/token",
		UserInfoURL:        "https://iflow.cn/api/user/info",
		Style:              StyleIFlowWeb,
		UsesPKCE:           false,
		ActivatePostToken:  true,
		RefreshMaxAttempts: 1, // iFlow refresh errors are not retried
		CallbackPort:       0, // ephemeral
		CallbackPath:       "/oauth2callback",
	},
	VendorGLM: {
		Vendor:             VendorGLM,
		AuthURL:            "https://open.bigmodel.cn/oauth/authorize",
		TokenURL:           "https://open.bigmodel.cn/oauth/token",
		Style:              StyleLegacy,
		UsesPKCE:           true,
		RefreshMaxAttempts: 3,
		CallbackPort:       8080,
		CallbackPath:       "/oauth2callback",
	},
}
