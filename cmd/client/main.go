// Command client is a thin terminal wrapper around the relay's wire
// protocol: one goroutine copies stdin lines to the server, one prints
// server lines with a bit of color. All chat logic lives server-side.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/NicolasHaas/gorelay/pkg/logging"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:65432", "server address")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	_ = godotenv.Load()

	// Default to "info"; override with CHAT_LOG_LEVEL (debug, info, warn, error).
	level := "info"
	if v := os.Getenv("CHAT_LOG_LEVEL"); v != "" {
		level = v
	}
	_ = logging.Setup(logging.Options{Level: level, Output: os.Stderr})

	if *noColor {
		color.Disable()
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		in := bufio.NewScanner(conn)
		for in.Scan() {
			fmt.Println(render(in.Text()))
		}
	}()

	go func() {
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			if _, err := fmt.Fprintf(conn, "%s\n", stdin.Text()); err != nil {
				return
			}
		}
		// stdin closed: tell the server we are leaving
		_, _ = fmt.Fprintln(conn, "/chao")
	}()

	// Exit when the server closes the connection, including after /chao.
	<-done
}

// render colorizes a server line by its shape. The wire protocol has no
// message-type framing, so classification matches on the literal templates.
func render(line string) string {
	switch {
	case strings.Contains(line, "(privado): "):
		return color.Magenta.Render(line)
	case strings.HasSuffix(line, " se unio al chat.") || strings.HasSuffix(line, " se fue del chat."):
		return color.Yellow.Render(line)
	case strings.HasPrefix(line, "El usuario ") && strings.HasSuffix(line, " esta conectado."):
		return color.Cyan.Render(line)
	case line == "El usuario no existe." || strings.HasPrefix(line, "Uso: "):
		return color.Red.Render(line)
	default:
		return line
	}
}
