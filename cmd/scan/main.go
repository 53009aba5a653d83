// cmd/scan runs one analysis cycle over live Binance data and prints the
// indicator readout and signal per market, without touching risk state,
// storage or alerts.
//
// Usage:
//
//	go run ./cmd/scan --symbols=BTCUSDT,ETHUSDT --tf=4h --entry-tf=1h
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"signalbotv1/internal/indicator"
	"signalbotv1/internal/marketdata/binance"
	"signalbotv1/internal/model"
	"signalbotv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	symbolsStr := flag.String("symbols", "BTCUSDT,ETHUSDT,BNBUSDT,SOLUSDT,ADAUSDT", "Comma-separated markets to scan")
	analysisTF := flag.String("tf", "4h", "Timeframe scored for direction")
	entryTF := flag.String("entry-tf", "1h", "Timeframe the entry levels come from")
	limit := flag.Int("limit", 100, "Candles fetched per timeframe")
	minConf := flag.Float64("min-confidence", 0, "Only print signals at or above this confidence (0=all)")
	flag.Parse()

	symbols := splitSymbols(*symbolsStr)
	if len(symbols) == 0 {
		log.Fatal("[scan] no symbols specified")
	}

	cfg := strategy.DefaultConfig()
	cfg.AnalysisTimeframe = *analysisTF
	cfg.EntryTimeframe = *entryTF
	engine := strategy.NewEngine(cfg, 1)

	client := binance.NewClient()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	scanned := 0
	directional := 0
	for _, symbol := range symbols {
		analysis, err := client.Klines(ctx, symbol, *analysisTF, *limit)
		if err != nil {
			log.Printf("[scan] %s %s klines: %v", symbol, *analysisTF, err)
			continue
		}
		entry := analysis
		if *entryTF != *analysisTF {
			entry, err = client.Klines(ctx, symbol, *entryTF, *limit)
			if err != nil {
				log.Printf("[scan] %s %s klines: %v", symbol, *entryTF, err)
				continue
			}
		}

		sig, err := engine.Analyze(analysis, entry)
		if err != nil {
			log.Printf("[scan] %s analyze: %v", symbol, err)
			continue
		}
		scanned++
		if sig.Direction != model.Neutral {
			directional++
		}
		if sig.Confidence < *minConf {
			continue
		}

		printSignal(symbol, sig, analysis, cfg.Params)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║          SCAN COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Markets scanned:   %-16d ║\n", scanned)
	fmt.Printf("║  Directional calls: %-16d ║\n", directional)
	fmt.Printf("║  Timeframes:        %-16s ║\n", *analysisTF+"/"+*entryTF)
	fmt.Println("╚══════════════════════════════════════╝")
}

func printSignal(symbol string, sig model.TradeSignal, analysis *model.Series, params indicator.Params) {
	fmt.Printf("\n── %s ─────────────────────────────\n", symbol)
	fmt.Printf("  %s (confidence %.0f%%)\n", sig.Direction, sig.Confidence*100)
	if sig.Direction != model.Neutral {
		fmt.Printf("  entry=%.4f stop=%.4f target=%.4f\n", sig.EntryPrice, sig.StopLoss, sig.TakeProfit)
	}

	frame, err := indicator.Compute(analysis, params)
	if err != nil {
		return
	}
	row, ok := frame.Last()
	if !ok {
		return
	}
	fmt.Printf("  close=%.4f", row.Close)
	printValue("rsi", row.RSI, "%.1f")
	printValue("macd", row.MACD, "%.4f")
	printValue("adx", row.ADX, "%.1f")
	printValue("atr", row.ATR, "%.4f")
	fmt.Println()
}

func printValue(name string, v model.Value, format string) {
	if v.Ready {
		fmt.Printf(" %s="+format, name, v.V)
	} else {
		fmt.Printf(" %s=n/a", name)
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
