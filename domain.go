package globalcache

import (
	"strings"
)

// Entity type names used in keys
const (
	EntityDevice          = "device"
	EntityVariable        = "variable"
	EntityBusinessAccount = "business_account"
	EntityUser            = "user"
)

// Device is a connected device as held by the system of record.
type Device struct {
	ID             string
	OwnerID        int64
	OrganizationID int64
	Label          string
	Name           string
	Description    string
	Tags           []string
	Context        map[string]any
	UbiContext     map[string]any
	State          int
	Enabled        bool
	CreatedAt      int64
	LastActivity   int64
	Variables      []string
}

// Attribute implements Source
func (d *Device) Attribute(name string) (any, bool) {
	if d == nil {
		return nil, false
	}
	switch name {
	case "id":
		return d.ID, true
	case "owner_id":
		return d.OwnerID, true
	case "organization_id":
		return d.OrganizationID, true
	case "label":
		return d.Label, true
	case "name":
		return d.Name, true
	case "description":
		return d.Description, true
	case "tags":
		return d.Tags, true
	case "context":
		return nilIfEmpty(d.Context), true
	case "ubi_context":
		return nilIfEmpty(d.UbiContext), true
	case "state":
		return d.State, true
	case "enabled":
		return d.Enabled, true
	case "created_at":
		return d.CreatedAt, true
	case "last_activity":
		return d.LastActivity, true
	case "variables":
		return d.Variables, true
	}
	return nil, false
}

// Variable is a device variable. Device, when set, is the owning device and
// supplies the derived owner and device label attributes.
type Variable struct {
	ID           string
	DeviceID     string
	Device       *Device
	Label        string
	Name         string
	Description  string
	Icon         string
	Unit         string
	DerivedExpr  string
	Tags         []string
	Type         int
	State        int
	Properties   map[string]any
	LastValue    *LastValue
	CreatedAt    int64
	LastActivity int64
}

// LastValue is the most recent reading of a variable
type LastValue struct {
	Value   float64        `json:"value"`
	Context map[string]any `json:"context,omitempty"`
}

// Attribute implements Source
func (v *Variable) Attribute(name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch name {
	case "id":
		return v.ID, true
	case "device_id":
		return v.DeviceID, true
	case "device":
		if v.Device == nil {
			return nil, false
		}
		return v.Device, true
	case "label":
		return v.Label, true
	case "name":
		return v.Name, true
	case "description":
		return v.Description, true
	case "icon":
		return v.Icon, true
	case "unit":
		return v.Unit, true
	case "derived_expr":
		return v.DerivedExpr, true
	case "tags":
		return v.Tags, true
	case "type":
		return v.Type, true
	case "state":
		return v.State, true
	case "properties":
		return nilIfEmpty(v.Properties), true
	case "last_value":
		if v.LastValue == nil {
			return nil, true
		}
		return v.LastValue, true
	case "created_at":
		return v.CreatedAt, true
	case "last_activity":
		return v.LastActivity, true
	}
	return nil, false
}

// BusinessAccount is the billing account of an organization.
type BusinessAccount struct {
	ID                   int64
	OwnerID              int64
	IsActive             bool
	DateCreated          int64
	Balance              int64
	ExtraCosts           map[string]int64
	Prices               map[string]int64
	InitialFreeItems     map[string]int64
	Limits               map[string]int64
	OneTimeCosts         map[string]int64
	BusinessType         int
	LastActivity         int64
	TrialEndTimestampUTC int64
	InvoiceTo            string
	CustomNote           string
	Plan                 string
	FromEmail            string
}

// Attribute implements Source
func (b *BusinessAccount) Attribute(name string) (any, bool) {
	if b == nil {
		return nil, false
	}
	switch name {
	case "id":
		return b.ID, true
	case "owner_id":
		return b.OwnerID, true
	case "is_active":
		return b.IsActive, true
	case "date_created":
		return b.DateCreated, true
	case "balance":
		return b.Balance, true
	case "extra_costs":
		return b.ExtraCosts, true
	case "prices":
		return b.Prices, true
	case "initial_free_items":
		return b.InitialFreeItems, true
	case "limits":
		return b.Limits, true
	case "one_time_costs":
		return b.OneTimeCosts, true
	case "business_type":
		return b.BusinessType, true
	case "last_activity":
		return b.LastActivity, true
	case "trial_end_timestamp_utc":
		return b.TrialEndTimestampUTC, true
	case "invoice_to":
		return b.InvoiceTo, true
	case "custom_note":
		return b.CustomNote, true
	case "plan":
		return b.Plan, true
	case "from_email":
		return b.FromEmail, true
	}
	return nil, false
}

// User is an account holder.
type User struct {
	ID             int64
	Username       string
	Email          string
	FirstName      string
	LastName       string
	OrganizationID int64
	IsActive       bool
	DateJoined     int64
	LastLogin      int64
}

// Attribute implements Source
func (u *User) Attribute(name string) (any, bool) {
	if u == nil {
		return nil, false
	}
	switch name {
	case "id":
		return u.ID, true
	case "username":
		return u.Username, true
	case "email":
		return u.Email, true
	case "first_name":
		return u.FirstName, true
	case "last_name":
		return u.LastName, true
	case "organization_id":
		return u.OrganizationID, true
	case "is_active":
		return u.IsActive, true
	case "date_joined":
		return u.DateJoined, true
	case "last_login":
		return u.LastLogin, true
	}
	return nil, false
}

// DeviceType is the device projection
var DeviceType = MustEntityType(EntityDevice,
	[]string{
		"id", "owner_id", "organization_id", "label", "name", "description", "tags",
		"context", "ubi_context", "state", "enabled", "created_at", "last_activity", "variables",
	},
	Mappers{
		"tags": joinTags,
	},
)

// VariableType is the variable projection. owner_id and device_label are
// taken from the owning device.
var VariableType = MustEntityType(EntityVariable,
	[]string{
		"id", "device_id", "owner_id", "device_label", "label", "name", "description", "icon",
		"unit", "derived_expr", "tags", "type", "state", "properties", "last_value",
		"created_at", "last_activity",
	},
	Mappers{
		"device_id":    variableDeviceID,
		"owner_id":     fromDevice(func(d *Device) any { return d.OwnerID }),
		"device_label": fromDevice(func(d *Device) any { return d.Label }),
		"tags":         joinTags,
	},
)

// BusinessAccountType is the business account projection
var BusinessAccountType = MustEntityType(EntityBusinessAccount,
	[]string{
		"id", "owner_id", "is_active", "date_created", "balance", "extra_costs", "prices",
		"initial_free_items", "limits", "one_time_costs", "business_type", "last_activity",
		"trial_end_timestamp_utc", "invoice_to", "custom_note", "plan", "from_email",
	},
	Mappers{
		"trial_end_timestamp_utc": zeroAsAbsent,
		"invoice_to":              lowerEmail,
		"from_email":              lowerEmail,
	},
)

// UserType is the user projection
var UserType = MustEntityType(EntityUser,
	[]string{
		"id", "username", "email", "first_name", "last_name", "organization_id",
		"is_active", "date_joined", "last_login",
	},
	Mappers{
		"email":      lowerEmail,
		"last_login": zeroAsAbsent,
	},
)

// DeviceByLabel keys devices by {owner_id}:{label}
var DeviceByLabel = NewLabelType(DeviceType, KeyFromAttributes("owner_id", "label"))

// VariableByLabel keys variables by {owner_id}:{device_label}:{label}
var VariableByLabel = NewLabelType(VariableType, KeyFromAttributes("owner_id", "device_label", "label"))

// UserByLabel keys users by username
var UserByLabel = NewLabelType(UserType, KeyFromAttributes("username"))

// DefaultRegistry returns a registry of the built-in entity types
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DeviceType, VariableType, BusinessAccountType, UserType)
	if err != nil {
		panic(err)
	}
	return r
}

// LabelTypes returns the built-in label types by entity type name
func LabelTypes() map[string]*LabelType {
	return map[string]*LabelType{
		EntityDevice:   DeviceByLabel,
		EntityVariable: VariableByLabel,
		EntityUser:     UserByLabel,
	}
}

func joinTags(_ Source, raw any) (any, error) {
	tags, ok := raw.([]string)
	if !ok || len(tags) == 0 {
		return nil, nil
	}
	return strings.Join(tags, ","), nil
}

func fromDevice(get func(*Device) any) Transform {
	return func(src Source, raw any) (any, error) {
		if raw != nil {
			return raw, nil
		}
		d, ok := src.Attribute("device")
		if !ok {
			return nil, nil
		}
		device, ok := d.(*Device)
		if !ok || device == nil {
			return nil, nil
		}
		return get(device), nil
	}
}

// variableDeviceID prefers the explicit device id and falls back to the
// owning device.
func variableDeviceID(src Source, raw any) (any, error) {
	if s, ok := raw.(string); ok && s != "" {
		return s, nil
	}
	return fromDevice(func(d *Device) any { return d.ID })(src, nil)
}

func zeroAsAbsent(_ Source, raw any) (any, error) {
	switch v := raw.(type) {
	case int64:
		if v == 0 {
			return nil, nil
		}
	case int:
		if v == 0 {
			return nil, nil
		}
	}
	return raw, nil
}

func lowerEmail(_ Source, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil, nil
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

func nilIfEmpty(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
