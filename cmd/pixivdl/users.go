package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pixivdl/pkg/auth"
	"pixivdl/pkg/config"
	"pixivdl/pkg/ui"
)

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage stored pixiv accounts",
	Long: `Manage the accounts whose session cookies pixivdl uses.

Cookies are kept in the user database in the config directory, or in the
system keychain or an encrypted file when auth.backend says so. The default
user is used by every command unless --user or --cookie is given.`,
}

var usersAddCmd = &cobra.Command{
	Use:   "add <name> [cookie]",
	Short: "Store the cookie of a new user",
	Long: `Store the cookie of a new user. Without a cookie argument it is read from
standard input, hidden when that is a terminal.`,
	Example: `  pixivdl users add alice
  echo "PHPSESSID=...; __utmv=..." | pixivdl users add alice`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := userDB(cmd)
		if err != nil {
			return err
		}

		cookie := ""
		if len(args) == 2 {
			cookie = args[1]
		} else {
			if stdoutIsTerminal() {
				auth.ShowCookieExtractionGuide(os.Stderr)
			}
			if cookie, err = readSecret("Cookie: "); err != nil {
				return fmt.Errorf("read cookie: %w", err)
			}
		}

		if err := db.Add(args[0], cookie); err != nil {
			if errors.Is(err, auth.ErrEmptyCookie) {
				auth.ShowQuickExtractGuide(os.Stderr)
			}
			return err
		}
		ui.PrintSuccess("✓ Added user " + args[0])
		if _, ok := db.GetDefault(); !ok {
			ui.PrintInfo("Hint", "make it the default with 'pixivdl users set-default "+args[0]+"'")
		}
		return nil
	},
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stored user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := userDB(cmd)
		if err != nil {
			return err
		}
		if err := db.Remove(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("✓ Removed user " + args[0])
		return nil
	},
}

var usersSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Use a stored user by default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := userDB(cmd)
		if err != nil {
			return err
		}
		if err := db.SetDefault(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("✓ Default user is now " + args[0])
		return nil
	},
}

var usersRemoveDefaultCmd = &cobra.Command{
	Use:   "remove-default",
	Short: "Clear the default user; requests become anonymous",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := userDB(cmd)
		if err != nil {
			return err
		}
		if err := db.RemoveDefault(); err != nil {
			return err
		}
		ui.PrintSuccess("✓ Default user cleared")
		return nil
	},
}

var usersGetDefaultCmd = &cobra.Command{
	Use:         "get-default",
	Short:       "Print the default user",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationPlain: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := userDB(cmd)
		if err != nil {
			return err
		}
		name, ok := db.GetDefault()
		if !ok {
			return fmt.Errorf("no default user")
		}
		fmt.Println(name)
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List stored users",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationPlain: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := userDB(cmd)
		if err != nil {
			return err
		}
		def, _ := db.GetDefault()
		for _, name := range db.List() {
			if name == def {
				fmt.Printf("%s (default)\n", name)
				continue
			}
			fmt.Println(name)
		}
		return nil
	},
}

var usersPrintCookieCmd = &cobra.Command{
	Use:         "print-cookie [name]",
	Short:       "Print the cookie of a user, the default user without a name",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationPlain: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		cookie, err := userCookie(cmd, args)
		if err != nil {
			return err
		}
		fmt.Println(cookie)
		return nil
	},
}

var usersUserIDCmd = &cobra.Command{
	Use:         "user-id [name]",
	Short:       "Print the pixiv user id found in the cookie of a user",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationPlain: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		cookie, err := userCookie(cmd, args)
		if err != nil {
			return err
		}
		id, err := auth.UserIDFromCookie(cookie)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var usersPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the location of the user database",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationPlain: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		dir, err := cfg.ConfigDir()
		if err != nil {
			return err
		}
		fmt.Println(auth.DBPath(dir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(
		usersAddCmd,
		usersRemoveCmd,
		usersSetDefaultCmd,
		usersRemoveDefaultCmd,
		usersGetDefaultCmd,
		usersListCmd,
		usersPrintCookieCmd,
		usersUserIDCmd,
		usersPathCmd,
	)
}

func userDB(cmd *cobra.Command) (*auth.UserDB, error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, err
	}
	return openUserDB(cfg)
}

// userCookie returns the cookie of the named user, or of the default user
func userCookie(cmd *cobra.Command, args []string) (string, error) {
	db, err := userDB(cmd)
	if err != nil {
		return "", err
	}
	if len(args) == 1 {
		return db.Cookie(args[0])
	}
	name, ok := db.GetDefault()
	if !ok {
		return "", fmt.Errorf("no user given and no default user")
	}
	return db.Cookie(name)
}

// userIDOf returns the pixiv user id of the account the config selects
func userIDOf(cfg *config.Config) (uint64, error) {
	cookie, err := resolveCookie(cfg)
	if err != nil {
		return 0, err
	}
	if cookie == "" {
		return 0, fmt.Errorf("no cookie: add a user with 'pixivdl users add' or pass --cookie")
	}
	return auth.UserIDFromCookie(cookie)
}
