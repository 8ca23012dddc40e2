package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"callgogo/backend/internal/callhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the HTTP connection to a WebSocket and registers
// the participant. The anonymous identity comes from the JWT; the optional
// birth year comes from the query string and the country code from the
// network origin (CDN geo header).
func (h *Handler) ServeWebSocket(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}
	tokenString := authHeader[7:]

	anonID, err := h.validateAndGetAnonID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	if h.Storage != nil {
		banned, err := h.Storage.IsBanned(anonID)
		if err != nil {
			log.Printf("WARNING: ban check for %s failed: %v", anonID, err)
		}
		if banned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account suspended"})
			return
		}
	}

	age := ageFromBirthYear(c.Query("birth_year"))
	country := c.GetHeader("CF-IPCountry")
	if country == "" {
		country = c.Query("country")
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	h.Registry.Add(anonID, age, country)

	client := callhub.NewWebSocketClient(h.Hub, anonID, conn)

	h.Hub.RegisterCh <- client
	client.Run()
}

// ageFromBirthYear derives an age from an optional birth-year parameter.
// Anything implausible counts as undisclosed.
func ageFromBirthYear(s string) int {
	if s == "" {
		return 0
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	age := time.Now().Year() - year
	if age < 1 || age > 120 {
		return 0
	}
	return age
}
