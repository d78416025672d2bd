package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/clubsync/go-club-client/credentials"
	"github.com/clubsync/go-club-client/fallback"
	"github.com/clubsync/go-club-client/internal/config"
	"github.com/clubsync/go-club-client/providers"
	"github.com/clubsync/go-club-client/realtime"
	"github.com/clubsync/go-club-client/session"
	"github.com/clubsync/go-club-client/users"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}

	c := config.New()
	store, err := credentials.NewFileStore(c.GetDataFolder())
	if err != nil {
		return fmt.Errorf("credentials.NewFileStore %w", err)
	}

	var options []session.ManagerOption
	if c.AllowFallback() {
		responder := fallback.NewResponder(c.GetAPIBaseURL(), c.GetProbeTimeout())
		options = append(options, session.WithFallback(responder))
	}
	manager, err := session.NewManager(c, store, options...)
	if err != nil {
		return fmt.Errorf("session.NewManager %w", err)
	}

	ctx := context.Background()
	switch args[0] {
	case "login":
		return login(ctx, c, manager, args[1:])
	case "me":
		return me(ctx, manager)
	case "teams":
		return teams(ctx, manager)
	case "watch":
		return watch(ctx, c, manager, args[1:])
	case "logout":
		manager.Logout()
		fmt.Println("Signed out")
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func login(ctx context.Context, c config.Config, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	googleAuth := fs.Bool("google", false, "sign in with Google instead of a password")
	clientID := fs.String("client-id", os.Getenv("GOOGLE_CLIENT_ID"), "Google OAuth client id")
	clientSecret := fs.String("client-secret", os.Getenv("GOOGLE_CLIENT_SECRET"), "Google OAuth client secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	displayAppname(c.GetAppName())

	if *googleAuth {
		return loginWithGoogle(ctx, manager, *clientID, *clientSecret)
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password (or -google)")
	}

	current, err := manager.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", current.User.FullName(), current.User.Role)
	if current.Mode == session.ModeDegraded {
		fmt.Println("Service unreachable: running in degraded mode with local data")
	}
	return nil
}

// loginWithGoogle runs the authorization-code flow by hand: the user opens
// the printed URL, approves, and pastes the code back.
func loginWithGoogle(ctx context.Context, manager *session.Manager, clientID, clientSecret string) error {
	if clientID == "" || clientSecret == "" {
		return errors.New("google login requires -client-id and -client-secret (or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET)")
	}

	oauthConfig := providers.GoogleAuthCodeConfig(clientID, clientSecret, "http://localhost:8765/callback")
	fmt.Println("Open this URL, approve access, and paste the code below:")
	fmt.Println(oauthConfig.AuthCodeURL("state"))

	code, err := readLine("Code: ")
	if err != nil {
		return err
	}
	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("oauth code exchange: %w", err)
	}
	idToken, ok := providers.IDTokenFromExchange(token)
	if !ok {
		return errors.New("no ID token in the exchange response")
	}

	verifier, err := providers.NewOIDCVerifier(ctx, providers.GoogleIssuer, clientID)
	if err != nil {
		return fmt.Errorf("oidc discovery: %w", err)
	}

	result, err := manager.LoginWithOAuth(ctx, session.ProviderGoogle, idToken,
		session.WithIDTokenVerifier(verifier))
	if err != nil {
		return err
	}
	if result.NeedsRoleSelection {
		fmt.Printf("Welcome %s! Choose a role (%v):\n", result.Email, users.Roles)
		choice, err := readLine("Role: ")
		if err != nil {
			return err
		}
		current, err := manager.CompleteRoleSelection(ctx, users.RoleType(strings.TrimSpace(choice)))
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s (%s)\n", current.User.FullName(), current.User.Role)
		return nil
	}
	fmt.Printf("Signed in as %s (%s)\n", result.Session.User.FullName(), result.Session.User.Role)
	return nil
}

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func me(ctx context.Context, manager *session.Manager) error {
	manager.RestoreFromStorage(ctx)
	if manager.AccessToken() == "" {
		return errors.New("not signed in, run clubctl login")
	}

	var user users.User
	if err := manager.Client().Get(ctx, "/auth/me", &user); err != nil {
		return err
	}
	if expiry, ok := manager.AccessTokenExpiry(); ok {
		fmt.Printf("Session expires %s\n", expiry.Format(time.RFC3339))
	}
	fmt.Printf("%s <%s> role=%s\n", user.FullName(), user.Email, user.Role)
	return nil
}

func teams(ctx context.Context, manager *session.Manager) error {
	manager.RestoreFromStorage(ctx)
	if manager.AccessToken() == "" {
		return errors.New("not signed in, run clubctl login")
	}

	collection, err := manager.Client().GetCollection(ctx, "/teams")
	if err != nil {
		return err
	}
	fmt.Printf("%d team(s)\n", collection.Total)
	for _, item := range collection.Items {
		var team struct {
			Name     string `json:"name"`
			Category string `json:"category"`
			League   string `json:"league"`
		}
		if err := json.Unmarshal(item, &team); err != nil {
			continue
		}
		fmt.Printf("  %s [%s] %s\n", team.Name, team.Category, team.League)
	}
	return nil
}

func watch(ctx context.Context, c config.Config, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	teamID := fs.String("team", "", "team id to subscribe to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	manager.RestoreFromStorage(ctx)
	if manager.AccessToken() == "" {
		return errors.New("not signed in, run clubctl login")
	}

	channel := realtime.NewChannel(c.GetWSURL(), c.GetReconnectDelay(), manager,
		realtime.WithMessageHandler(func(msg realtime.Message) {
			fmt.Printf("[%s] %s\n", msg.Type, string(msg.Data))
		}),
		realtime.WithStateHandler(func(state realtime.ConnState) {
			fmt.Printf("-- connection %s\n", state)
		}))
	defer channel.Disconnect()

	if *teamID != "" {
		channel.SubscribeToTeam(*teamID)
	}
	channel.Connect(ctx)

	waitForStopSignal()
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Println("Usage: clubctl <command>")
	fmt.Println("  login  -email <email> -password <password> | -google")
	fmt.Println("  me")
	fmt.Println("  teams")
	fmt.Println("  watch  [-team <id>]")
	fmt.Println("  logout")
}
