package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"campus-cart/internal/config"
	"campus-cart/internal/domain"
	"campus-cart/internal/realtime"
	"campus-cart/internal/service"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL del API")
	userID := flag.String("user", "", "id del usuario que abre el inbox")
	email := flag.String("email", "", "email del usuario (opcional)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if strings.TrimSpace(*userID) == "" {
		log.Fatal("-user es obligatorio")
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL())
	token, err := jwtSvc.GenerateAccessToken(domain.User{ID: *userID, Email: *email})
	if err != nil {
		log.Fatalf("generar token: %v (JWT_SECRET configurado?)", err)
	}

	base, err := url.Parse(strings.TrimRight(*addr, "/"))
	if err != nil {
		log.Fatalf("addr invalida: %v", err)
	}

	ws, err := dialPush(base, token)
	if err != nil {
		log.Fatalf("abrir canal push: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(realtime.ClientFrame{Type: realtime.FrameAuth, UserID: *userID}); err != nil {
		log.Fatalf("enviar auth: %v", err)
	}
	logger.Info("push channel open", zap.String("user_id", *userID))

	go readFrames(ws, logger)

	client := &apiClient{base: base, token: token, http: &http.Client{Timeout: 10 * time.Second}}
	runPrompt(context.Background(), bufio.NewReader(os.Stdin), client)
}

func dialPush(base *url.URL, token string) (*websocket.Conn, error) {
	wsURL := *base
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"

	header := http.Header{}
	header.Set("Origin", base.Scheme+"://"+base.Host)
	header.Set("Authorization", "Bearer "+token)
	ws, _, err := websocket.DefaultDialer.Dial(wsURL.String(), header)
	return ws, err
}

func readFrames(ws *websocket.Conn, logger *zap.Logger) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			logger.Warn("push channel closed", zap.Error(err))
			os.Exit(1)
		}
		var frame struct {
			Type string                  `json:"type"`
			Data realtime.NewMessageData `json:"data"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != realtime.FrameNewMessage {
			continue
		}
		msg := frame.Data.Message
		fmt.Printf("\n[%s] %s (%s): %s\n> ",
			frame.Data.ConversationID,
			msg.Sender.Email,
			msg.Timestamp.Local().Format("15:04"),
			msg.Body,
		)
	}
}

func runPrompt(ctx context.Context, reader *bufio.Reader, client *apiClient) {
	fmt.Println("---- Inbox (comandos: list | show <id> | reply <id> <texto> | send <productId> <texto> | salir) ----")
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
		if len(fields) == 0 || fields[0] == "" {
			continue
		}

		var out []byte
		switch {
		case fields[0] == "salir":
			return
		case fields[0] == "list":
			out, err = client.do(ctx, http.MethodGet, "/api/conversations", nil)
		case fields[0] == "show" && len(fields) >= 2:
			out, err = client.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(fields[1]), nil)
		case fields[0] == "reply" && len(fields) == 3:
			out, err = client.do(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(fields[1])+"/messages", map[string]string{"messageBody": fields[2]})
		case fields[0] == "send" && len(fields) == 3:
			out, err = client.do(ctx, http.MethodPost, "/api/messages", map[string]string{"productId": fields[1], "messageBody": fields[2]})
		default:
			fmt.Println("Comando invalido.")
			continue
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Println(string(out))
	}
}

type apiClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		return pretty.Bytes(), nil
	}
	return data, nil
}
