package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/ftsensor"
)

func init() {
	ftsensor.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := ftsensor.NewConfig()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	runner := fx.NewRunner().HandleSignals()
	daemon, err := conf.NewDaemon(runner.Context())
	if err != nil {
		glog.Exitf("start: %v", err)
	}
	if err := runner.Go(daemon).Wait(); err != nil {
		glog.Exitf("%v", err)
	}
}
