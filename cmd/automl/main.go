// Command automl runs model searches and serves evaluation workers.
//
//	automl search --config automl.yml --data train.csv --target y
//	automl worker --config automl.yml
//	automl process --workload /tmp/automl-workload/workload.json
//	automl version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
