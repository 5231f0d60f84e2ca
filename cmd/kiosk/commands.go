package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/core/service"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errMissingArg     = errors.New("missing argument")
)

type action int

const (
	actDispatch action = iota
	actHelp
	actScanStart
	actScanStop
	actConfirmClear
	actShow
	actQuit
)

type command struct {
	action action
	intent service.Intent
}

const helpText = `Commands:
  <barcode> | lookup <barcode>   look up a product (adds it in cart mode)
  mode price|cart                switch mode
  add|inc|dec|rm <barcode>       cart line actions
  clear                          empty the cart (asks first)
  checkout                       show the total and payment QR
  search <text>                  filter the product list ("search" alone clears)
  category <id>|all              filter by category
  price <bucket>|any             filter by price: 0-100000, 100000-200000, ..., 400000+
  page <n> | next | prev         browse pages
  refresh                        reload the catalog
  scan | stop                    start or stop the camera
  show                           redraw the screen
  help | quit`

// parseCommand turns one input line into a command. Filter commands start
// from current so that search, category and price combine.
func parseCommand(line string, current service.Filter) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, errMissingArg
	}
	verb := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	dispatch := func(in service.Intent) (command, error) {
		return command{action: actDispatch, intent: in}, nil
	}
	needArg := func(kind service.IntentKind) (command, error) {
		if arg == "" {
			return command{}, errMissingArg
		}
		return dispatch(service.Intent{Kind: kind, Code: arg})
	}

	switch verb {
	case "help", "?":
		return command{action: actHelp}, nil
	case "quit", "exit":
		return command{action: actQuit}, nil
	case "show":
		return command{action: actShow}, nil
	case "scan":
		return command{action: actScanStart}, nil
	case "stop":
		return command{action: actScanStop}, nil
	case "clear":
		return command{action: actConfirmClear}, nil
	case "lookup":
		return dispatch(service.Intent{Kind: service.IntentManualLookup, Code: arg})
	case "add":
		return needArg(service.IntentCartAdd)
	case "inc":
		return needArg(service.IntentCartIncrement)
	case "dec":
		return needArg(service.IntentCartDecrement)
	case "rm":
		return needArg(service.IntentCartRemove)
	case "checkout":
		return dispatch(service.Intent{Kind: service.IntentCheckout})
	case "refresh":
		return dispatch(service.Intent{Kind: service.IntentCatalogRefresh})
	case "mode":
		return dispatch(service.Intent{Kind: service.IntentModeChanged, Mode: domain.Mode(strings.ToLower(arg))})
	case "search":
		f := current
		f.Query = arg
		return dispatch(service.Intent{Kind: service.IntentFilterChanged, Filter: f})
	case "category":
		f := current
		if arg == "" || strings.EqualFold(arg, "all") {
			f.CategoryID = 0
		} else {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || id < 0 {
				return command{}, errMissingArg
			}
			f.CategoryID = id
		}
		return dispatch(service.Intent{Kind: service.IntentFilterChanged, Filter: f})
	case "price":
		f := current
		if strings.EqualFold(arg, "any") {
			arg = ""
		}
		bucket, err := service.ParsePriceBucket(arg)
		if err != nil {
			return command{}, err
		}
		f.Price = bucket
		return dispatch(service.Intent{Kind: service.IntentFilterChanged, Filter: f})
	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return command{}, errMissingArg
		}
		return dispatch(service.Intent{Kind: service.IntentPageChanged, Page: n})
	case "next":
		return dispatch(service.Intent{Kind: service.IntentPageChanged, Step: 1})
	case "prev":
		return dispatch(service.Intent{Kind: service.IntentPageChanged, Step: -1})
	}

	// A bare code is a manual lookup.
	if len(fields) == 1 {
		return dispatch(service.Intent{Kind: service.IntentManualLookup, Code: fields[0]})
	}
	return command{}, errUnknownCommand
}

func confirmed(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
