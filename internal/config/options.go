package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// optionValues are the runtime-tunable settings. They are only ever
// touched through Options, which serializes access and persists every
// change.
type optionValues struct {
	AdminUsers               []string `yaml:"admin_users"`
	AutoInvite               []string `yaml:"auto_invite"`
	PrivateCTFs              bool     `yaml:"private_ctfs"`
	MaintenanceMode          bool     `yaml:"maintenance_mode"`
	AllowSignup              bool     `yaml:"allow_signup"`
	ArchiveEverything        bool     `yaml:"archive_everything"`
	ArchiveCTFReminderOffset int      `yaml:"archive_ctf_reminder_offset"`
	IntroMessage             string   `yaml:"intro_message"`
	DebugLogging             bool     `yaml:"debug_logging"`
}

// Options is the mutable settings store. One global lock guards both
// the values and the backing file; every successful change is written
// back immediately so a restart picks it up.
type Options struct {
	mu   sync.Mutex
	path string
	vals optionValues
}

// LoadOptions reads the options file. A missing file yields defaults;
// any other read or parse failure is an error.
func LoadOptions(path string) (*Options, error) {
	o := &Options{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return o, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}
	if err := yaml.Unmarshal(data, &o.vals); err != nil {
		return nil, fmt.Errorf("parsing options file: %w", err)
	}
	return o, nil
}

// save writes the current values back. Callers must hold the lock.
func (o *Options) save() error {
	data, err := yaml.Marshal(&o.vals)
	if err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}
	if err := os.WriteFile(o.path, data, 0o600); err != nil {
		return fmt.Errorf("writing options file: %w", err)
	}
	return nil
}

// Set updates one option by name from its string form. Unknown names
// are rejected without touching anything.
func (o *Options) Set(name, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch name {
	case "admin_users":
		o.vals.AdminUsers = splitList(value)
	case "auto_invite":
		o.vals.AutoInvite = splitList(value)
	case "private_ctfs":
		return o.setBool(&o.vals.PrivateCTFs, name, value)
	case "maintenance_mode":
		return o.setBool(&o.vals.MaintenanceMode, name, value)
	case "allow_signup":
		return o.setBool(&o.vals.AllowSignup, name, value)
	case "archive_everything":
		return o.setBool(&o.vals.ArchiveEverything, name, value)
	case "archive_ctf_reminder_offset":
		offset, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("option %s needs a number of hours: %w", name, err)
		}
		o.vals.ArchiveCTFReminderOffset = offset
	case "intro_message":
		o.vals.IntroMessage = value
	case "debug_logging":
		return o.setBool(&o.vals.DebugLogging, name, value)
	default:
		return fmt.Errorf("unknown option: %s", name)
	}
	return o.logAndSave(name)
}

func (o *Options) setBool(target *bool, name, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("option %s needs a boolean: %w", name, err)
	}
	*target = parsed
	return o.logAndSave(name)
}

func (o *Options) logAndSave(name string) error {
	log.Printf("Updated option %s", name)
	return o.save()
}

func splitList(value string) []string {
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// IsAdmin reports whether the user is in the admin list.
func (o *Options) IsAdmin(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Contains(o.vals.AdminUsers, userID)
}

// AdminUsers returns a copy of the admin user list.
func (o *Options) AdminUsers() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.vals.AdminUsers)
}

// AddAdmin grants a user admin rights, reporting whether the list
// changed.
func (o *Options) AddAdmin(userID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if slices.Contains(o.vals.AdminUsers, userID) {
		return false, nil
	}
	o.vals.AdminUsers = append(o.vals.AdminUsers, userID)
	return true, o.save()
}

// RemoveAdmin revokes a user's admin rights, reporting whether the
// list changed.
func (o *Options) RemoveAdmin(userID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	before := len(o.vals.AdminUsers)
	o.vals.AdminUsers = slices.DeleteFunc(o.vals.AdminUsers, func(id string) bool {
		return id == userID
	})
	if len(o.vals.AdminUsers) == before {
		return false, nil
	}
	return true, o.save()
}

// AutoInvite returns the users invited automatically into new CTF and
// challenge channels.
func (o *Options) AutoInvite() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.vals.AutoInvite)
}

// PrivateCTFs reports whether new CTF channels are created private.
func (o *Options) PrivateCTFs() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vals.PrivateCTFs
}

// MaintenanceMode reports whether non-admin commands are suspended.
func (o *Options) MaintenanceMode() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vals.MaintenanceMode
}

// ToggleMaintenanceMode flips maintenance mode and returns the new
// state.
func (o *Options) ToggleMaintenanceMode() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.vals.MaintenanceMode = !o.vals.MaintenanceMode
	return o.vals.MaintenanceMode, o.save()
}

// AllowSignup reports whether users may sign up to CTFs themselves.
func (o *Options) AllowSignup() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vals.AllowSignup
}

// ArchiveEverything reports whether archiving a CTF also archives its
// main channel.
func (o *Options) ArchiveEverything() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vals.ArchiveEverything
}

// ArchiveCTFReminderOffset returns the archive reminder delay in
// hours; zero disables reminders.
func (o *Options) ArchiveCTFReminderOffset() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vals.ArchiveCTFReminderOffset
}

// IntroMessage returns the text posted by the intro command.
func (o *Options) IntroMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vals.IntroMessage
}

// DebugLogging reports whether verbose command logging is on.
func (o *Options) DebugLogging() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vals.DebugLogging
}

// ToggleDebugLogging flips verbose command logging and returns the new
// state.
func (o *Options) ToggleDebugLogging() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.vals.DebugLogging = !o.vals.DebugLogging
	return o.vals.DebugLogging, o.save()
}
