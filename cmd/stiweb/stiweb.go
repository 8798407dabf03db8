// Command stiweb serves previews of a directory of STI sprite files
// over HTTP.
//
// Frames render as PNG at /sti/{name}/frame/{idx}.png, whole files as
// animated GIF at /sti/{name}/anim.gif, and metadata as JSON at
// /sti/{name}/info.
package main

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"badc0de.net/pkg/flagutil/v1"

	"flag"

	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	_ "golang.org/x/net/trace"

	"badc0de.net/pkg/go-sti/store"
	"badc0de.net/pkg/go-sti/web"
)

var (
	listenAddress  = flag.String("listen_address", ":8080", "http listen address for stiweb")
	stiDir         = flag.String("sti_dir", ".", "directory with sti files to serve")
	debugWebServer = flag.String("debug_web_server_listen_address", "", "where the debug server will listen")
)

func main() {
	flagutil.Parse()

	figure.NewFigure("stiweb", "", false).Print()

	if *debugWebServer != "" {
		http.HandleFunc("/debug/minimetrics", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "runtime.NumGoroutine(): %d\n", runtime.NumGoroutine())
		})
		go func() {
			glog.Errorf("debug web server: %v", http.ListenAndServe(*debugWebServer, nil))
		}()
	}

	h := web.NewHandler(store.New(), *stiDir)
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	glog.Infof("stiweb serving %q on %s", *stiDir, *listenAddress)
	glog.Fatal(http.ListenAndServe(*listenAddress, handlers.CombinedLoggingHandler(os.Stdout, r)))
}
