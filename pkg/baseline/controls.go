package baseline

import (
	"fmt"
	"sort"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

// Role names a control the recovery machine interacts with.
// Roles are the keys of the `controls` section in baseline.yaml.
type Role string

// Control roles.
const (
	RolePermissionAllow Role = "permissionAllow"
	RoleAlertOK         Role = "alertOK"
	RoleGenderFemale    Role = "onboardingFemale"
	RoleGenderMale      Role = "onboardingMale"
	RoleDialogCancel    Role = "addListCancel"
	RoleBack            Role = "back"
	RoleClose           Role = "close"
	RoleProfileTab      Role = "profileTab"
	RoleProfileSettings Role = "profileSettings"
	RoleLogout          Role = "logout"
	RoleDefaultTab      Role = "defaultTab"
)

// Controls is the catalog of keys the machine checks and taps.
type Controls struct {
	PermissionAllow locator.Key
	AlertOK         locator.Key
	GenderFemale    locator.Key
	GenderMale      locator.Key
	DialogCancel    locator.Key
	Back            locator.Key
	Close           locator.Key
	ProfileTab      locator.Key
	ProfileSettings locator.Key
	Logout          locator.Key
	DefaultTab      locator.Key
}

// DefaultControls returns the accessibility identifiers the app ships with.
func DefaultControls() Controls {
	return Controls{
		PermissionAllow: locator.Identifier("pushNotificationDialogAllowButton"),
		AlertOK:         locator.Identifier("alertViewOKButton"),
		GenderFemale:    locator.Identifier("onboardingFemaleUserButton"),
		GenderMale:      locator.Identifier("onboardingMaleUserButton"),
		DialogCancel:    locator.Identifier("addListDialogCancelButton"),
		Back:            locator.Identifier("navigationBarBackButton"),
		Close:           locator.Identifier("navigationBarCloseButton"),
		ProfileTab:      locator.Identifier("profileTab"),
		ProfileSettings: locator.Identifier("profileScreenSettingsButton"),
		Logout:          locator.Identifier("settingsScreenLogoutButton"),
		DefaultTab:      locator.Identifier("productScannerTab"),
	}
}

// Roles returns every role in catalog order.
func Roles() []Role {
	return []Role{
		RolePermissionAllow, RoleAlertOK, RoleGenderFemale, RoleGenderMale,
		RoleDialogCancel, RoleBack, RoleClose, RoleProfileTab,
		RoleProfileSettings, RoleLogout, RoleDefaultTab,
	}
}

// Key returns the key bound to role.
func (c Controls) Key(role Role) (locator.Key, bool) {
	p := c.slot(role)
	if p == nil {
		return nil, false
	}
	return *p, true
}

// With returns a copy of c with the overrides applied. Unknown roles are a
// config error.
func (c Controls) With(overrides map[string]locator.Key) (Controls, error) {
	roles := make([]string, 0, len(overrides))
	for r := range overrides {
		roles = append(roles, r)
	}
	sort.Strings(roles)

	out := c
	for _, r := range roles {
		p := out.slot(Role(r))
		if p == nil {
			return c, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown control role %q", r))
		}
		*p = overrides[r]
	}
	return out, nil
}

// Validate reports the first role without a usable key.
func (c Controls) Validate() error {
	for _, r := range Roles() {
		k, _ := c.Key(r)
		if err := locator.Validate(k); err != nil {
			return core.ErrNoLocator.
				WithMessage(fmt.Sprintf("control %q: %v", r, err)).
				WithCause(err)
		}
	}
	return nil
}

func (c *Controls) slot(role Role) *locator.Key {
	switch role {
	case RolePermissionAllow:
		return &c.PermissionAllow
	case RoleAlertOK:
		return &c.AlertOK
	case RoleGenderFemale:
		return &c.GenderFemale
	case RoleGenderMale:
		return &c.GenderMale
	case RoleDialogCancel:
		return &c.DialogCancel
	case RoleBack:
		return &c.Back
	case RoleClose:
		return &c.Close
	case RoleProfileTab:
		return &c.ProfileTab
	case RoleProfileSettings:
		return &c.ProfileSettings
	case RoleLogout:
		return &c.Logout
	case RoleDefaultTab:
		return &c.DefaultTab
	default:
		return nil
	}
}
