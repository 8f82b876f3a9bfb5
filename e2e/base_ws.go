package e2e

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const readTimeout = 5 * time.Second

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping end-to-end suite")
	}
}

// Client is one participant of a scenario.
type Client struct {
	suite *BaseWsSuite
	name  string
	ws    *websocket.Conn
}

// Dial connects a named participant to room, printing a colorized header.
func (s *BaseWsSuite) Dial(name, room string) *Client {
	header := fmt.Sprintf("  ====== %s joins %s ======", name, room)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	target := url.URL{Scheme: "ws", Host: s.Config.RelayAddr, Path: "/" + room}
	ws, _, err := websocket.DefaultDialer.Dial(target.String(), nil)
	s.Require().NoError(err, "Failed to connect to relay at "+target.String())
	s.T().Cleanup(func() { _ = ws.Close() })
	return &Client{suite: s, name: name, ws: ws}
}

// UniqueRoom returns a fresh room so runs against a long-lived relay do not
// see each other's history.
func (s *BaseWsSuite) UniqueRoom(label string) string {
	return fmt.Sprintf("%s-%s-%d", s.Config.Room, label, time.Now().UnixNano())
}

func (c *Client) Send(message domain.ChatMessage) {
	payload, err := message.Encode()
	c.suite.Require().NoError(err)
	c.suite.Require().NoError(c.ws.WriteMessage(websocket.TextMessage, payload))
}

func (c *Client) Read() domain.ChatMessage {
	c.suite.Require().NoError(c.ws.SetReadDeadline(time.Now().Add(readTimeout)))
	_, payload, err := c.ws.ReadMessage()
	c.suite.Require().NoError(err, c.name+" did not receive a message")
	if c.suite.Config.DebugJSON {
		c.suite.T().Logf("%s <- %s", c.name, payload)
	}
	var message domain.ChatMessage
	c.suite.Require().NoError(json.Unmarshal(payload, &message))
	return message
}

// ReadContent reads the next message and returns its content.
func (c *Client) ReadContent() string {
	return c.Read().Content()
}

func (c *Client) Leave() {
	err := c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	c.suite.Require().NoError(err)
}
