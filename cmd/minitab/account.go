package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nikbrunner/minitab/internal/auth"
)

var (
	emailFlag    string
	passwordFlag string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Long: `Create an account and sign in. Bookmarks kept on this machine are
moved into the new account.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, true)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your account",
	Long: `Sign in to your account. On the first sign-in, bookmarks kept on
this machine are moved into the account.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, false)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and go back to local bookmarks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		if _, ok := e.session.User(); !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
			return nil
		}
		if err := e.session.SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show which bookmarks are in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()
		defer printFeed(cmd.OutOrStdout(), e.feed)

		if u, ok := e.session.User(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (account %s)\n", u.Email, u.ID)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in; using local bookmarks")
		return nil
	},
}

func authenticate(cmd *cobra.Command, signUp bool) error {
	creds, err := readCredentials(cmd, signUp)
	if err != nil {
		return err
	}

	e, err := openEnv(cmd.Context(), envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()
	defer printFeed(cmd.OutOrStdout(), e.feed)

	var u auth.User
	if signUp {
		u, err = e.session.SignUp(cmd.Context(), creds)
	} else {
		u, err = e.session.SignIn(cmd.Context(), creds)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", u.Email)
	return nil
}

// readCredentials takes flags first and prompts for the rest. The password
// prompt does not echo when stdin is a terminal.
func readCredentials(cmd *cobra.Command, confirm bool) (auth.Credentials, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()

	email := strings.TrimSpace(emailFlag)
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return auth.Credentials{}, err
		}
		email = strings.TrimSpace(line)
	}

	password := passwordFlag
	if password == "" {
		p, err := readPassword(in, out, "Password: ")
		if err != nil {
			return auth.Credentials{}, err
		}
		password = p

		if confirm {
			again, err := readPassword(in, out, "Repeat password: ")
			if err != nil {
				return auth.Credentials{}, err
			}
			if again != password {
				return auth.Credentials{}, errors.New("passwords do not match")
			}
		}
	}
	return auth.Credentials{Email: email, Password: password}, nil
}

func readPassword(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return string(b), err
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVarP(&emailFlag, "email", "e", "", "account email")
		c.Flags().StringVar(&passwordFlag, "password", "", "account password (prompted when empty)")
	}
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}
