package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/toqueteos/webbrowser"
	webview "github.com/webview/webview_go"

	"github.com/pysbridge/pysbridge"
	"github.com/pysbridge/pysbridge/internal/config"
	"github.com/pysbridge/pysbridge/internal/hostserver"
	"github.com/pysbridge/pysbridge/internal/logger"
	"github.com/pysbridge/pysbridge/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	slogger := logger.New(cfg.LogLevel, cfg.LogJSON)

	bridge := pysbridge.Create(cfg.BridgeID)
	hub := ws.NewHub(slogger)
	srv := hostserver.New(bridge, hub, cfg, slogger)

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatal(err)
	}

	addr := fmt.Sprintf("http://%s", listener.Addr())
	slogger.Info("host starting", "addr", addr, "bridge", bridge.ID())

	go func() {
		if err := http.Serve(listener, srv.Router()); err != nil {
			log.Fatal(err)
		}
	}()

	switch {
	case cfg.Window:
		w := webview.New(false)
		defer w.Destroy()
		w.SetTitle("pysbridge")
		w.SetSize(960, 640, webview.HintMin)
		w.Navigate(addr)
		w.Run()
	default:
		if cfg.OpenBrowser {
			_ = webbrowser.Open(addr)
		}
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
	}

	slogger.Info("shutting down")
	srv.Emit("host_shutdown")
	hub.CloseAll()
}
