package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cuihairu/cohortchat/services/chat/internal/config"
	"github.com/cuihairu/cohortchat/services/chat/internal/handler"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
)

var (
	configFile = flag.String("f", "etc/chat.yaml", "the config file")
	envFile    = flag.String("env", ".env", "optional dotenv file loaded before the config")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envFile); err == nil {
		logx.Infof("loaded environment from %s", *envFile)
	}

	var c config.Config
	conf.MustLoad(*configFile, &c, conf.UseEnv())

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()

	ctx := svc.MustNewServiceContext(c)
	defer ctx.Close()

	server.Use(func(next http.HandlerFunc) http.HandlerFunc {
		return otelhttp.NewHandler(next, c.Name).ServeHTTP
	})
	handler.RegisterHandlers(server, ctx)

	fmt.Printf("Starting chat server at %s:%d...\n", c.Host, c.Port)
	server.Start()
}
