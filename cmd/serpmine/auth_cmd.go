package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fentz26/serpmine/internal/auth"
	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the account's credit balance",
	RunE:  runCredits,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API session",
	Long:  `Stores the session tokens issued by the serpmine web console. Paste them from the console's "CLI access" page.`,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

var (
	loginAccessToken  string
	loginRefreshToken string
	loginExpiresIn    int
	loginEmail        string
	loginUsername     string
)

func init() {
	loginCmd.Flags().StringVar(&loginAccessToken, "access-token", "", "Access token (required)")
	loginCmd.Flags().StringVar(&loginRefreshToken, "refresh-token", "", "Refresh token (required)")
	loginCmd.Flags().IntVar(&loginExpiresIn, "expires-in", 3600, "Access token lifetime in seconds")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "Account username")
	loginCmd.MarkFlagRequired("access-token")
	loginCmd.MarkFlagRequired("refresh-token")
}

func runCredits(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := context.WithTimeout(context.Background(), remoteSyncTimeout)
	defer cancel()

	balance, err := e.api.Credits(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Credits: %d\n", balance)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	session := auth.Session{
		AccessToken:  loginAccessToken,
		RefreshToken: loginRefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(loginExpiresIn) * time.Second).Unix(),
		User: auth.User{
			Email:    loginEmail,
			Username: loginUsername,
		},
	}
	if err := e.auth.SetSession(session); err != nil {
		return err
	}

	fmt.Println("Session stored")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.auth.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	user := e.auth.GetUser()
	if user == nil {
		fmt.Println("Not logged in")
		return nil
	}

	name := user.Username
	if name == "" {
		name = user.Email
	}
	fmt.Printf("Signed in as %s\n", name)
	if !e.auth.IsAuthenticated() {
		fmt.Println("Session expired; it will refresh on the next API call")
	}
	return nil
}
