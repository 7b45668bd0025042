// Command censusml trains and evaluates an income classifier on the UCI
// Adult census data.
//
//	censusml -c knn --train data/train_data.txt --test data/test_data.txt
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		var uce *errors.UnknownClassifierError
		if errors.As(err, &uce) {
			fmt.Fprintln(os.Stdout, "Error: Model not found.")
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
