package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"
	"storefront/internal/client/cartview"
	"storefront/internal/client/checkout"
	"storefront/internal/client/favorites"
	"storefront/internal/client/optimistic"

	"github.com/shopspring/decimal"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	login := fs.String("login", "", "email or phone number")
	password := fs.String("password", os.Getenv("STOREFRONT_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *login == "" || *password == "" {
		return errors.New("-login and -password are required")
	}

	if err := a.client.Login(ctx, api.Credentials{Login: *login, Password: *password}); err != nil {
		return err
	}
	a.bus.Wait()
	fmt.Println("logged in")
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "email")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", os.Getenv("STOREFRONT_PASSWORD"), "password")
	name := fs.String("name", "", "first name")
	surname := fs.String("surname", "", "surname")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	err := a.client.Register(ctx, api.Registration{
		Email:       *email,
		PhoneNumber: *phone,
		Password:    *password,
		Name:        *name,
		Surname:     *surname,
	})
	if err != nil {
		return err
	}
	a.bus.Wait()
	fmt.Println("registered")
	return nil
}

func (a *app) logout() error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	a.bus.Wait()
	fmt.Println("logged out")
	return nil
}

func (a *app) me(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("me", flag.ContinueOnError)
	var patch api.ProfilePatch
	optional(fs, &patch.Name, "name", "first name")
	optional(fs, &patch.Surname, "surname", "surname")
	optional(fs, &patch.Patronymic, "patronymic", "patronymic")
	optional(fs, &patch.PhoneNumber, "phone", "phone number")
	optional(fs, &patch.Email, "email", "email")
	optional(fs, &patch.Birthday, "birthday", "YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		p   api.Profile
		err error
	)
	if fs.NFlag() > 0 {
		p, err = a.client.UpdateMe(ctx, patch)
	} else {
		p, err = a.client.Me(ctx)
	}
	if err != nil {
		return err
	}
	printProfile(a.client, p)
	return nil
}

func (a *app) avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: avatar <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := a.client.UploadAvatar(ctx, filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	printProfile(a.client, p)
	return nil
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	var q api.ProductQuery
	fs.StringVar(&q.Q, "q", "", "search text")
	fs.IntVar(&q.Page, "page", 0, "page number")
	fs.IntVar(&q.Limit, "limit", 0, "page size")
	fs.StringVar(&q.Sort, "sort", "", "new|price_asc|price_desc")
	fs.BoolVar(&q.IsNew, "new", false, "only new arrivals")
	fs.BoolVar(&q.IsSale, "sale", false, "only discounted")
	fs.BoolVar(&q.Popular, "popular", false, "only bestsellers")
	fs.BoolVar(&q.InStock, "in-stock", false, "only with an active variant")
	fs.StringVar(&q.Category, "category", "", "category id or name")
	fs.StringVar(&q.Brand, "brand", "", "brand id or name")
	fs.StringVar(&q.Group, "group", "", "parent category name")
	fs.Func("sizes", "comma separated sizes, e.g. 41,42", func(v string) error {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Sizes = append(q.Sizes, s)
			}
		}
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := a.client.Products(ctx, q)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tPRICE\tVARIANT\tFLAGS")
	for _, p := range page.Results {
		variant := "-"
		if p.DefaultVariantID != nil {
			variant = strconv.FormatInt(*p.DefaultVariantID, 10)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Slug, p.Name, p.Price.StringFixed(2), variant, summaryFlags(p))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d\n", len(page.Results), page.Count)
	return nil
}

func (a *app) product(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: product <slug>")
	}
	p, err := a.client.Product(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", p.Name, p.Slug)
	if p.Brand != "" || p.Category != "" {
		fmt.Printf("%s / %s\n", p.Brand, p.Category)
	}
	fmt.Printf("price: %s\n", p.Price.StringFixed(2))
	if p.Image != "" {
		fmt.Printf("image: %s\n", a.client.MediaURL(p.Image))
	}
	if p.IsFavorited {
		fmt.Println("favorite: yes")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tSIZE\tCOLOR\tPRICE\tACTIVE")
	for _, v := range p.Variants {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", v.ID, v.SizeLabel(), v.Color, v.Price.StringFixed(2), v.IsActive)
	}
	return w.Flush()
}

func (a *app) cart(ctx context.Context) error {
	c, err := a.client.Cart(ctx)
	if err != nil {
		return err
	}
	printCart(c)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: add <slug> [size]")
	}
	size := ""
	if len(args) == 2 {
		size = args[1]
	}

	p, err := a.client.Product(ctx, args[0])
	if err != nil {
		return err
	}

	q := cartview.NewQuantityControl(a.client, a.bus, cartview.Options{Log: a.log})
	defer q.Close()
	if err := q.Load(ctx); err != nil {
		return err
	}

	id, out, err := q.AddToCart(ctx, p, size)
	if errors.Is(err, cartview.ErrNotPurchasable) {
		if labels := p.SizeLabels(); len(labels) > 0 {
			return fmt.Errorf("%w (sizes: %s)", err, strings.Join(labels, ", "))
		}
	}
	if err != nil {
		return err
	}
	a.bus.Wait()
	fmt.Printf("variant %d: qty %d (%s)\n", id, q.Quantity(id), out)
	return nil
}

func (a *app) quantity(ctx context.Context, cmd string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <variant>", cmd)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("variant must be number: %w", err)
	}

	q := cartview.NewQuantityControl(a.client, a.bus, cartview.Options{Log: a.log})
	defer q.Close()
	if err := q.Load(ctx); err != nil {
		return err
	}

	var out optimistic.Outcome
	switch cmd {
	case "inc":
		out, err = q.Increment(ctx, id)
	case "dec":
		out, err = q.Decrement(ctx, id)
	default:
		out, err = q.Remove(ctx, id)
	}
	if err != nil {
		return err
	}
	a.bus.Wait()
	fmt.Printf("variant %d: qty %d (%s)\n", id, q.Quantity(id), out)
	return nil
}

func (a *app) newFavorites() *favorites.Favorites {
	return favorites.New(a.client, a.sess, a.store, a.bus, favorites.Options{
		Log: a.log,
		OnAuthRequired: func(slug string) {
			fmt.Fprintln(os.Stderr, "favorites need an account: run `storefront login` or `storefront register`")
		},
	})
}

func (a *app) fav(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fav <slug>")
	}
	f := a.newFavorites()
	defer f.Close()

	if err := f.Load(ctx); err != nil {
		return err
	}
	if _, err := f.Toggle(ctx, args[0]); err != nil {
		return err
	}
	a.bus.Wait()
	if f.IsFavorite(args[0]) {
		fmt.Printf("%s added to favorites\n", args[0])
	} else {
		fmt.Printf("%s removed from favorites\n", args[0])
	}
	return nil
}

func (a *app) favorites(ctx context.Context) error {
	f := a.newFavorites()
	defer f.Close()

	if !a.sess.Authenticated() {
		return favorites.ErrAuthRequired
	}
	if err := f.Load(ctx); err != nil {
		return err
	}
	for _, s := range f.Slugs() {
		fmt.Println(s)
	}
	return nil
}

func (a *app) orders(ctx context.Context) error {
	list, err := a.client.OrderHistory(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tDATE\tSTATUS\tTOTAL")
	for _, o := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Number, o.Date, o.Status, o.Total.StringFixed(2))
	}
	return w.Flush()
}

func (a *app) order(ctx context.Context, args []string) error {
	id, err := orderID("order", args)
	if err != nil {
		return err
	}
	o, err := a.client.OrderDetail(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("order %s (%s) %s\n", o.Number, o.Date, o.Status)
	switch o.DeliveryType {
	case api.DeliveryPickup:
		label, ok := checkout.PickupPoints[o.PickupID]
		if !ok {
			label = o.PickupID
		}
		fmt.Printf("pickup: %s\n", label)
	case api.DeliveryCourier:
		fmt.Printf("delivery: %s\n", o.Address)
		if o.AddressComment != "" {
			fmt.Printf("comment: %s\n", o.AddressComment)
		}
	}
	printCart(api.Cart{Lines: o.Lines, Total: o.Total})
	return nil
}

func (a *app) repeat(ctx context.Context, args []string) error {
	id, err := orderID("repeat", args)
	if err != nil {
		return err
	}
	moved, err := a.client.RepeatOrder(ctx, id)
	if err != nil {
		return err
	}
	a.bus.Wait()
	fmt.Printf("%d items moved to cart\n", moved)
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	var req api.CheckoutRequest
	delivery := fs.String("type", "", "pickup|delivery")
	fs.StringVar(&req.PickupID, "pickup", "", "pickup point id")
	fs.StringVar(&req.Address, "address", "", "delivery address")
	fs.StringVar(&req.AddressComment, "comment", "", "comment for the courier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.DeliveryType = api.DeliveryType(*delivery)

	co := checkout.New(a.client, a.store, a.bus, a.log)
	cart, err := co.Prepare(ctx)
	if err != nil {
		return err
	}
	printCart(cart)
	if errors.Is(checkout.CanPay(cart, req), checkout.ErrUnknownPickup) {
		for _, id := range checkout.PickupIDs() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", id, checkout.PickupPoints[id])
		}
	}

	pay, err := co.Start(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("pay here: %s\n", pay.PaymentURL)
	fmt.Println("after paying run: storefront pay-sync '<redirect url>'")
	return nil
}

func (a *app) paySync(ctx context.Context, args []string) error {
	query := url.Values{}
	if len(args) == 1 {
		q, err := parseRedirect(args[0])
		if err != nil {
			return err
		}
		query = q
	}

	co := checkout.New(a.client, a.store, a.bus, a.log)
	st, err := co.Complete(ctx, query)
	a.bus.Wait()
	if err != nil {
		return err
	}
	if st.Paid() {
		fmt.Println("payment confirmed")
	} else {
		fmt.Printf("payment status: %s\n", st.Status)
	}
	return nil
}

// watch はヘッダーのバッジを表示し続ける（定期的に cart changed を流す）
func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", 5*time.Second, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	badge := cartview.NewHeaderBadge(a.client, a.bus, a.log, func(total decimal.Decimal, count int) {
		fmt.Printf("[%s] cart: %d items, %s\n", time.Now().Format("15:04:05"), count, total.StringFixed(2))
	})
	defer badge.Close()
	badge.Load(ctx)

	t := time.NewTicker(*interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.bus.Emit(broadcast.CartChanged)
		}
	}
}

func orderID(cmd string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s <order id>", cmd)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("order id must be number: %w", err)
	}
	return id, nil
}

func parseRedirect(s string) (url.Values, error) {
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return nil, err
		}
		return u.Query(), nil
	}
	return url.ParseQuery(strings.TrimPrefix(s, "?"))
}

// 指定されたフラグだけ非nilにする
func optional(fs *flag.FlagSet, dst **string, name string, usage string) {
	fs.Func(name, usage, func(v string) error {
		*dst = &v
		return nil
	})
}

func summaryFlags(p api.ProductSummary) string {
	var f []string
	if p.IsNew {
		f = append(f, "new")
	}
	if p.IsSale {
		f = append(f, fmt.Sprintf("sale -%d%%", p.Sale))
	}
	if p.IsHit {
		f = append(f, "hit")
	}
	if p.IsFavorited {
		f = append(f, "fav")
	}
	return strings.Join(f, ",")
}

func printProfile(c *api.Client, p api.Profile) {
	fmt.Printf("%s %s %s\n", p.Surname, p.Name, p.Patronymic)
	fmt.Printf("email: %s\n", p.Email)
	fmt.Printf("phone: %s\n", p.PhoneNumber)
	if p.Birthday != "" {
		fmt.Printf("birthday: %s\n", p.Birthday)
	}
	if p.Image != "" {
		fmt.Printf("image: %s\n", c.MediaURL(p.Image))
	}
}

func printCart(c api.Cart) {
	if c.Empty() {
		fmt.Println("cart is empty")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tPRODUCT\tQTY\tPRICE\tSUM")
	for _, l := range c.Lines {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", l.VariantID, l.Product.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(w, "\t\t\t\t%s\n", c.Total.StringFixed(2))
	_ = w.Flush()
}
