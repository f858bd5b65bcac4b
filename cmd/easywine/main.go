package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"easywine/internal/client"
	"easywine/internal/pairing"
)

const usage = `usage: easywine <command> [flags]

commands:
  login NAME                       save your display name
  logout [-y]                      forget your display name
  categories                       list the food categories
  pair [-dish TEXT] [-category ID] [-photo FILE] [-server URL]
                                   ask the sommelier for a wine
`

// errReported means the user-facing message was already printed.
var errReported = errors.New("reported")

// cli holds what a command needs. Tests swap the store, streams and gateway.
type cli struct {
	store   client.NameStore
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	gateway func(serverURL string) client.Gateway
	onBusy  func(busy bool)
}

func main() {
	path, err := client.DefaultNamePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "easywine: %v\n", err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " CONSULTANDO..."

	c := &cli{
		store:  client.NewFileNameStore(path),
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		gateway: func(serverURL string) client.Gateway {
			return client.NewHTTPGateway(serverURL)
		},
		onBusy: func(busy bool) {
			if busy {
				s.Start()
			} else {
				s.Stop()
			}
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(c.run(ctx, os.Args[1:]))
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.errOut, usage)
		return 2
	}

	session, err := client.NewSession(c.store)
	if err != nil {
		fmt.Fprintf(c.errOut, "easywine: %v\n", err)
		return 1
	}
	app := client.NewApp(session, nil)

	switch args[0] {
	case "login":
		err = c.login(session, args[1:])
	case "logout":
		err = c.logout(app, args[1:])
	case "categories":
		c.categories()
	case "pair":
		err = c.pair(ctx, session, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
	default:
		fmt.Fprintf(c.errOut, "easywine: unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(c.errOut, "easywine: %v\n", err)
		}
		return 1
	}
	return 0
}

// report prints msg for the user and returns errReported.
func (c *cli) report(msg string) error {
	fmt.Fprintln(c.errOut, msg)
	return errReported
}

func (c *cli) login(session *client.Session, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if err := session.SignIn(name); err != nil {
		if errors.Is(err, client.ErrNameTooShort) {
			return c.report("Como gostaria de ser chamado? Use pelo menos 2 letras.")
		}
		return err
	}
	fmt.Fprintf(c.out, "Bem-vindo, %s.\n", name)
	return nil
}

func (c *cli) logout(app *client.App, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !app.Session().SignedIn() {
		fmt.Fprintln(c.out, "Nenhum nome salvo.")
		return nil
	}

	confirm := func(name string) bool {
		if *yes {
			return true
		}
		fmt.Fprintf(c.out, "Até logo, %s! Deseja sair? [s/N] ", name)
		line, _ := bufio.NewReader(c.in).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s", "sim", "y", "yes":
			return true
		}
		return false
	}

	ok, err := app.Logout(confirm)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(c.out, "Nome removido.")
	}
	return nil
}

func (c *cli) categories() {
	for _, cat := range pairing.Categories {
		fmt.Fprintf(c.out, "%s  %-10s %s\n", cat.Emoji, cat.ID, cat.Label)
	}
}

func (c *cli) pair(ctx context.Context, session *client.Session, args []string) error {
	fs := flag.NewFlagSet("pair", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	dish := fs.String("dish", "", "what you are eating")
	category := fs.String("category", "", "category id, see: easywine categories")
	photo := fs.String("photo", "", "path to a photo of the dish")
	server := fs.String("server", getEnv("EASYWINE_SERVER", "http://localhost:8080"), "gateway base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !session.SignedIn() {
		return c.report("Faça login primeiro: easywine login NOME")
	}

	app := client.NewApp(session, c.gateway(*server))
	app.OnBusy = c.onBusy
	app.SetIngredients(strings.TrimSpace(*dish))
	if *category != "" {
		if err := app.ToggleCategory(*category); err != nil {
			return err
		}
	}
	if *photo != "" {
		if err := app.LoadImageFile(*photo); err != nil {
			return err
		}
	}

	if err := app.Submit(ctx); err != nil {
		switch {
		case errors.Is(err, client.ErrNothingToPair):
			return c.report("Por favor, me dê uma dica: foto, texto ou categoria.")
		case errors.Is(err, client.ErrUnavailable):
			return c.report("O Sommelier está indisponível no momento. Tente novamente.")
		}
		return err
	}
	return client.Render(c.out, session.Name(), app.Result())
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
