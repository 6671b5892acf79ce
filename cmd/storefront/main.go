package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"
	"storefront/internal/client/localstore"
	"storefront/internal/client/session"
	"storefront/internal/config"
	"storefront/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const usage = `usage: storefront [-config file] [-ephemeral] <command> [args]

commands:
  login -login <email|phone> -password <pw>
  register -email <email> -password <pw> [-phone] [-name] [-surname]
  logout
  me [-name] [-surname] [-patronymic] [-phone] [-email] [-birthday]
  avatar <file>
  products [-q] [-page] [-limit] [-sort new|price_asc|price_desc] [-new] [-sale] [-popular]
           [-in-stock] [-category] [-brand] [-group] [-sizes 41,42]
  product <slug>
  cart
  add <slug> [size]
  inc <variant> | dec <variant> | rm <variant>
  fav <slug>
  favorites
  orders
  order <id>
  repeat <id>
  checkout -type pickup|delivery [-pickup krasnodar|maykop] [-address] [-comment]
  pay-sync <query or redirect url>
  watch [-interval 5s]
`

// app はコマンドが使う部品
type app struct {
	cfg    config.ClientConfig
	log    *logrus.Logger
	store  localstore.Store
	bus    *broadcast.Broadcaster
	sess   *session.Session
	client *api.Client
}

func main() {
	configPath := flag.String("config", "", "YAML config file (overrides STOREFRONT_CONFIG)")
	ephemeral := flag.Bool("ephemeral", false, "keep tokens and anon id in memory only")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	//.env は無くてもよい
	_ = godotenv.Load()

	a, err := newApp(*configPath, *ephemeral)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer a.bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp(configPath string, ephemeral bool) (*app, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	var store localstore.Store
	if ephemeral {
		store = localstore.NewMemory()
	} else {
		fs, err := localstore.OpenFile(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		store = fs
	}

	bus := broadcast.New(log)
	sess, err := session.New(store, log)
	if err != nil {
		bus.Close()
		return nil, err
	}

	client := api.New(api.Config{
		BaseURL:   cfg.APIBase,
		MediaBase: cfg.MediaBase,
		Timeout:   cfg.Timeout,
		Log:       log,
	}, sess, bus)

	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		bus:    bus,
		sess:   sess,
		client: client,
	}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.logout()
	case "me":
		return a.me(ctx, args)
	case "avatar":
		return a.avatar(ctx, args)
	case "products":
		return a.products(ctx, args)
	case "product":
		return a.product(ctx, args)
	case "cart":
		return a.cart(ctx)
	case "add":
		return a.add(ctx, args)
	case "inc", "dec", "rm":
		return a.quantity(ctx, cmd, args)
	case "fav":
		return a.fav(ctx, args)
	case "favorites":
		return a.favorites(ctx)
	case "orders":
		return a.orders(ctx)
	case "order":
		return a.order(ctx, args)
	case "repeat":
		return a.repeat(ctx, args)
	case "checkout":
		return a.checkout(ctx, args)
	case "pay-sync":
		return a.paySync(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
