package library

import "github.com/rs/zerolog"

// Themes.
const (
	ThemeLight = "Light"
	ThemeDark  = "Dark"
)

// Settings manages per-user display preferences.
type Settings struct {
	store Store
	log   zerolog.Logger
}

func NewSettings(store Store, logger zerolog.Logger) *Settings {
	return &Settings{store: store, log: logger.With().Str("component", "settings").Logger()}
}

// Add creates the settings record for userID.
func (s *Settings) Add(userID, theme string) (UserSetting, error) {
	setting := UserSetting{UserID: userID, Theme: theme}
	if err := validate("setting", setting); err != nil {
		return UserSetting{}, err
	}
	exists, err := s.store.UserExists(userID)
	if err != nil {
		return UserSetting{}, err
	}
	if !exists {
		return UserSetting{}, notFound("user", userID)
	}
	if _, ok, err := s.store.GetUserSettingByUser(userID); err != nil {
		return UserSetting{}, err
	} else if ok {
		return UserSetting{}, conflict("user %s already has settings", userID)
	}
	if err := s.store.SaveUserSetting(&setting); err != nil {
		return UserSetting{}, err
	}
	return setting, nil
}

// EnsureDefault creates a Light setting for userID when none exists.
func (s *Settings) EnsureDefault(userID string) (UserSetting, error) {
	if setting, ok, err := s.store.GetUserSettingByUser(userID); err != nil || ok {
		return setting, err
	}
	return s.Add(userID, ThemeLight)
}

// UpdateTheme sets userID's theme, creating the record first if needed.
func (s *Settings) UpdateTheme(userID, theme string) (UserSetting, error) {
	setting, err := s.EnsureDefault(userID)
	if err != nil {
		return UserSetting{}, err
	}
	setting.Theme = theme
	if err := validate("setting", setting); err != nil {
		return UserSetting{}, err
	}
	if err := s.store.SaveUserSetting(&setting); err != nil {
		return UserSetting{}, err
	}
	s.log.Info().Str("user_id", userID).Str("theme", theme).Msg("theme updated")
	return setting, nil
}

// ForUser returns userID's settings.
func (s *Settings) ForUser(userID string) (UserSetting, error) {
	setting, ok, err := s.store.GetUserSettingByUser(userID)
	if err != nil {
		return UserSetting{}, err
	}
	if !ok {
		return UserSetting{}, notFound("settings for user", userID)
	}
	return setting, nil
}

func (s *Settings) Delete(id int64) error {
	if _, ok, err := s.store.GetUserSetting(id); err != nil {
		return err
	} else if !ok {
		return notFound("setting", id)
	}
	return s.store.DeleteUserSetting(id)
}
