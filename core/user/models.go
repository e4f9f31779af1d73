package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/chakula/core"
)

// Roles
const (
	RoleClient     = "client"
	RoleRestaurant = "restaurant"
	RoleCourier    = "courier"
	RoleAdmin      = "admin"
)

// Statuses
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

var (
	AllRoles    = []string{RoleClient, RoleRestaurant, RoleCourier, RoleAdmin}
	AllStatuses = []string{StatusPending, StatusActive, StatusBlocked}
)

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	PhotoURL     string    `json:"photo_url"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) MailAddress() mail.Address {
	return mail.Address{Name: u.FullName(), Address: u.Email}
}

func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsClient() bool     { return u.Role == RoleClient }
func (u User) IsRestaurant() bool { return u.Role == RoleRestaurant }
func (u User) IsCourier() bool    { return u.Role == RoleCourier }
func (u User) IsBlocked() bool    { return u.Status == StatusBlocked }

// NewUser contains information needed to register a new client.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required,max=50"`
	LastName        string `json:"last_name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,max=30"`
	Address         string `json:"address" validate:"omitempty,max=255"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Address = core.CleanString(nu.Address)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// NewAccount is an account opened on behalf of someone else (restaurant owners, couriers).
// A temporary password is generated and mailed to them.
type NewAccount struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Address   string `json:"address" validate:"omitempty,max=255"`
}

func (na *NewAccount) Validate(validate *validator.Validate, svc Service) error {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.Address = core.CleanString(na.Address)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(na.Email)
}

// UpdateProfile defines what information a User may change about themselves.
// Blank fields keep their current value.
type UpdateProfile struct {
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=30"`
	Address   string `json:"address" validate:"max=255"`
	PhotoURL  string `json:"photo_url" validate:"omitempty,url"`
}

func (up *UpdateProfile) Validate(origUsr User, validate *validator.Validate, svc Service) error {
	up.FirstName = core.FirstNonEmpty(up.FirstName, origUsr.FirstName)
	up.LastName = core.FirstNonEmpty(up.LastName, origUsr.LastName)
	up.Email = core.FirstNonEmpty(core.CleanString(up.Email, true /* lower */), origUsr.Email)
	up.Phone = core.FirstNonEmpty(up.Phone, origUsr.Phone)
	up.Address = core.FirstNonEmpty(up.Address, origUsr.Address)
	up.PhotoURL = core.FirstNonEmpty(up.PhotoURL, origUsr.PhotoURL)

	if err := validate.Struct(up); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(up.Email, origUsr)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	usr User // password similarity is checked against their attributes
}

func (cp *ChangePassword) Validate(usr User, validate *validator.Validate) error {
	cp.usr = usr
	return validate.Struct(cp)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type SetStatus struct {
	Status string `json:"status" validate:"required,oneof=pending active blocked"`
}

func (ss *SetStatus) Validate(validate *validator.Validate) error {
	ss.Status = core.CleanString(ss.Status, true /* lower */)
	return validate.Struct(ss)
}

type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=150"`
	Message string `json:"message" validate:"required,max=2000"`
}

func (cm *ContactMessage) Validate(validate *validator.Validate) error {
	cm.Name = core.CleanString(cm.Name)
	cm.Email = core.CleanString(cm.Email, true /* lower */)
	cm.Subject = core.CleanString(cm.Subject)
	cm.Message = core.CleanString(cm.Message)
	return validate.Struct(cm)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	Statuses    []string  `query:"status"`
	CreatedFrom time.Time `query:"-"` // parsed from RFC 3339 by the API
	CreatedTo   time.Time `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.Statuses == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// GetFilter selects a single User. The first non-empty field is used.
type GetFilter struct {
	ID    string
	Email string
}
