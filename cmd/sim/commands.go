package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "stock-game",
		Short: "Tick-driven stock market simulation",
		Long: `stock-game runs a simulated market: prices evolve every tick under a
market profile, news and macro momentum, trading firms act on the result and
options, shorts, loans and deposits settle as they come due.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cfgPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Configuration file path (default configs/config.yaml or $CONFIG_PATH)")

	rootCmd.AddCommand(
		newRunCmd(&cfgPath),
		newTickCmd(&cfgPath),
		newMarketCmd(&cfgPath),
		newTradeCmd(&cfgPath),
		newQuoteCmd(&cfgPath),
		newPortfolioCmd(&cfgPath),
		newBankCmd(&cfgPath),
		newFirmsCmd(&cfgPath),
		newProfilesCmd(&cfgPath),
	)
	return rootCmd
}

// withApp opens the application, runs fn and closes it.
func withApp(cfgPath *string, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the simulation on its tick interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(*cfgPath)
		},
	}
}

func newTickCmd(cfgPath *string) *cobra.Command {
	var (
		count   int
		profile string
	)
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance the simulation a fixed number of ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				if profile != "" {
					if err := a.engine.UseProfile(profile); err != nil {
						return err
					}
				}
				for i := 0; i < count; i++ {
					rep, err := a.engine.AdvanceOneTick(ctx)
					if err != nil {
						fmt.Fprintf(os.Stderr, "tick %d: %v\n", rep.Tick, err)
						continue
					}
					fmt.Printf("tick %-6d profile=%-8s mood=%.3f (%s) index=%.2f trades=%d settled=%d news=%d\n",
						rep.Tick, rep.Profile, rep.Mood.Value, rep.Mood.Label, rep.Index.Value,
						rep.Trades, rep.Settlement.OptionsSettled+rep.Settlement.ShortsCovered, rep.NewsItems)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of ticks to run")
	cmd.Flags().StringVar(&profile, "profile", "", "Market profile to switch to before ticking")
	return cmd
}

func newMarketCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market [TICKER]",
		Short: "Show instrument snapshots, or one instrument with statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					d, err := a.engine.Detail(ctx, strings.ToUpper(args[0]))
					if err != nil {
						return err
					}
					return printJSON(d)
				}
				views, err := a.engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("tick %d\n", a.engine.Tick())
				for _, v := range views {
					fmt.Printf("%-6s %-10s %10.2f %+7.2f%%  vol=%.4f\n", v.Ticker, v.Sector, v.Price, v.Change, v.Volatility)
				}
				if s, ok := last(a.engine.MoodHistory()); ok {
					fmt.Printf("mood   %.3f (%s)\n", s.Value, s.Label)
				}
				if s, ok := last(a.engine.IndexHistory()); ok {
					fmt.Printf("index  %.2f\n", s.Value)
				}
				econ, momentum := a.engine.Economy()
				fmt.Printf("economy inflation=%.4f currency=%.4f momentum=%+.3f\n",
					econ.InflationRate, econ.CurrencyStrength, momentum)
				return nil
			})
		},
	}
	return cmd
}

func last(samples []model.Sample) (model.Sample, bool) {
	if len(samples) == 0 {
		return model.Sample{}, false
	}
	return samples[len(samples)-1], true
}

func newTradeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Execute a trade for a portfolio",
	}

	shares := func(side string) *cobra.Command {
		return &cobra.Command{
			Use:   side + " OWNER TICKER SHARES",
			Short: "Place a " + side + " order",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.ParseInt(args[2], 10, 64)
				if err != nil {
					return fmt.Errorf("shares: %w", err)
				}
				return withApp(cfgPath, func(ctx context.Context, a *app) error {
					svc := a.engine.Trading()
					owner, ticker := args[0], strings.ToUpper(args[1])
					var tx model.Transaction
					switch side {
					case "buy":
						tx, err = svc.Buy(ctx, owner, ticker, n)
					case "sell":
						tx, err = svc.Sell(ctx, owner, ticker, n)
					case "short":
						tx, err = svc.Short(ctx, owner, ticker, n)
					case "cover":
						tx, err = svc.Cover(ctx, owner, ticker, n)
					}
					if err != nil {
						return err
					}
					return printJSON(tx)
				})
			},
		}
	}

	option := func(variant model.OptionVariant) *cobra.Command {
		return &cobra.Command{
			Use:   string(variant) + " OWNER TICKER STRIKE EXPIRY_TICK CONTRACTS",
			Short: "Buy " + string(variant) + " contracts",
			Args:  cobra.ExactArgs(5),
			RunE: func(cmd *cobra.Command, args []string) error {
				strike, expiry, contracts, err := optionArgs(args[2], args[3], args[4])
				if err != nil {
					return err
				}
				return withApp(cfgPath, func(ctx context.Context, a *app) error {
					svc := a.engine.Trading()
					owner, ticker := args[0], strings.ToUpper(args[1])
					var tx model.Transaction
					if variant == model.Call {
						tx, err = svc.BuyCall(ctx, owner, ticker, strike, expiry, contracts)
					} else {
						tx, err = svc.BuyPut(ctx, owner, ticker, strike, expiry, contracts)
					}
					if err != nil {
						return err
					}
					return printJSON(tx)
				})
			},
		}
	}

	cmd.AddCommand(shares("buy"), shares("sell"), shares("short"), shares("cover"),
		option(model.Call), option(model.Put))
	return cmd
}

func optionArgs(strikeArg, expiryArg, contractsArg string) (float64, int64, int64, error) {
	strike, err := strconv.ParseFloat(strikeArg, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("strike: %w", err)
	}
	expiry, err := strconv.ParseInt(expiryArg, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("expiry: %w", err)
	}
	contracts := int64(1)
	if contractsArg != "" {
		if contracts, err = strconv.ParseInt(contractsArg, 10, 64); err != nil {
			return 0, 0, 0, fmt.Errorf("contracts: %w", err)
		}
	}
	return strike, expiry, contracts, nil
}

func newQuoteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quote TICKER call|put STRIKE EXPIRY_TICK",
		Short: "Quote (and mint if needed) an option contract",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			strike, expiry, _, err := optionArgs(args[2], args[3], "")
			if err != nil {
				return err
			}
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				c, err := a.engine.Trading().Quote(ctx, strings.ToUpper(args[0]), model.OptionVariant(args[1]), strike, expiry)
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
}

func newPortfolioCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio OWNER",
		Short: "Show a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				p, err := a.engine.Trading().Portfolio(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}

	watch := func(use string, add bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " OWNER TICKER",
			Short: use + " a watchlist ticker",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cfgPath, func(ctx context.Context, a *app) error {
					ticker := strings.ToUpper(args[1])
					if add {
						return a.engine.Trading().AddToWatchlist(ctx, args[0], ticker)
					}
					return a.engine.Trading().RemoveFromWatchlist(ctx, args[0], ticker)
				})
			},
		}
	}
	cmd.AddCommand(watch("watch", true), watch("unwatch", false))
	return cmd
}

func newBankCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Loans and deposits",
	}

	amountTerm := func(amountArg, termArg string) (decimal.Decimal, int64, error) {
		amount, err := decimal.NewFromString(amountArg)
		if err != nil {
			return decimal.Zero, 0, fmt.Errorf("amount: %w", err)
		}
		term, err := strconv.ParseInt(termArg, 10, 64)
		if err != nil {
			return decimal.Zero, 0, fmt.Errorf("term: %w", err)
		}
		return amount, term, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "loan OWNER PRINCIPAL TERM",
		Short: "Take a loan repaid over TERM ticks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, term, err := amountTerm(args[1], args[2])
			if err != nil {
				return err
			}
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				loan, err := a.engine.Bank().TakeLoan(ctx, args[0], amount, term)
				if err != nil {
					return err
				}
				return printJSON(loan)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deposit OWNER AMOUNT TERM",
		Short: "Open a deposit maturing after TERM ticks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, term, err := amountTerm(args[1], args[2])
			if err != nil {
				return err
			}
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				dep, err := a.engine.Bank().OpenDeposit(ctx, args[0], amount, term)
				if err != nil {
					return err
				}
				return printJSON(dep)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "withdraw OWNER DEPOSIT_ID",
		Short: "Close a deposit early and pay out its balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				paid, err := a.engine.Bank().Withdraw(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("withdrew %s\n", paid.StringFixed(2))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list OWNER",
		Short: "List an owner's loans and deposits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				loans, err := a.engine.Bank().Loans(ctx, args[0])
				if err != nil {
					return err
				}
				deposits, err := a.engine.Bank().Deposits(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"loans": loans, "deposits": deposits})
			})
		},
	})
	return cmd
}

func newFirmsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "firms [ID]",
		Short: "List firm summaries, or show one firm in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					f, err := a.engine.Firm(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(f)
				}
				firms, err := a.engine.Firms(ctx)
				if err != nil {
					return err
				}
				for _, f := range firms {
					fmt.Printf("%-10s %-16s cash=%12s worth=%12s trades=%-4d conf=%.2f greed=%.2f frust=%.2f\n",
						f.ID, f.Strategy, f.Cash.StringFixed(2), f.NetWorth.StringFixed(2), f.Trades,
						f.Emotion.Confidence, f.Emotion.Greed, f.Emotion.Frustration)
				}
				return nil
			})
		},
	}
}

func newProfilesCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List market profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				names, active := a.engine.Profiles()
				for _, n := range names {
					mark := " "
					if n == active {
						mark = "*"
					}
					fmt.Printf("%s %s\n", mark, n)
				}
				return nil
			})
		},
	}
}
