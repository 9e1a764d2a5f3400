package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"purrform/internal/mysql"
	"purrform/pkg/role"
	"purrform/pkg/user"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "purrformctl",
		Short:         "Administer Purrform dashboard accounts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newUserAddCmd())
	return root
}

func newUserAddCmd() *cobra.Command {
	var (
		username string
		roleName string
		dsn      string
	)

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a dashboard account; the password is read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, ok := role.Parse(roleName)
			if !ok {
				return fmt.Errorf("role must be %q or %q", role.Admin, role.Bookkeeper)
			}
			if dsn == "" {
				_ = godotenv.Load()
				dsn = os.Getenv("MYSQL_DSN")
			}
			if dsn == "" {
				return errors.New("MYSQL_DSN is not set; pass --dsn")
			}

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			db := mysql.LoadDB(dsn)
			defer db.Close()

			u, err := user.NewService(user.NewMySQLRepo(db)).CreateAccount(username, password, rl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", u.Username, u.Role, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&roleName, "role", "r", string(role.Admin), "admin or bookkeeper")
	cmd.Flags().StringVar(&dsn, "dsn", "", "MySQL DSN (defaults to MYSQL_DSN)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readPassword reads one line from in. A terminal gets a prompt on prompt and
// no echo.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	var password string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	return password, nil
}
