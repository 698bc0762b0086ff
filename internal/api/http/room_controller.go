package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/api/http/converter"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/service"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type RoomController struct {
	rooms     service.RoomInteractor
	chat      service.ChatInteractor
	publicURL string
}

func NewRoomController(rooms service.RoomInteractor, chat service.ChatInteractor, publicURL string) *RoomController {
	return &RoomController{
		rooms:     rooms,
		chat:      chat,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (c *RoomController) CreateRoom(ctx *gin.Context) {
	type CreateRoomRequest struct {
		Name   string `json:"name" binding:"required"`
		Master string `json:"master" binding:"required"`
	}
	var req CreateRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	master, err := uuid.Parse(req.Master)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid master uuid", "details": err.Error()})
		return
	}

	room, err := c.rooms.CreateRoom(ctx.Request.Context(), req.Name, master)
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"room": converter.RoomToApi(room), "join_link": c.joinLink(room.Code)})
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	room, err := c.rooms.GetRoom(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) ListPublicRooms(ctx *gin.Context) {
	rooms, err := c.rooms.ListPublicRooms(ctx.Request.Context())
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": converter.RoomsToApi(rooms)})
}

func (c *RoomController) ListParticipants(ctx *gin.Context) {
	participants, err := c.rooms.ListParticipants(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"participants": converter.ParticipantsToApi(participants)})
}

func (c *RoomController) ListMessages(ctx *gin.Context) {
	msgs, err := c.chat.ListMessages(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": converter.MessagesToApi(msgs)})
}

func (c *RoomController) SendMessage(ctx *gin.Context) {
	type request struct {
		UserID  string `json:"user_id" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	code := ctx.Param("code")
	if _, err := c.rooms.GetRoom(ctx.Request.Context(), code); err != nil {
		abortWith(ctx, err)
		return
	}
	msg, err := c.chat.SendMessage(ctx.Request.Context(), code, userID, req.Message)
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": converter.MessagesToApi([]domain.Message{*msg})[0]})
}

// QRCode renders the room's join link as a PNG.
func (c *RoomController) QRCode(ctx *gin.Context) {
	room, err := c.rooms.GetRoom(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		abortWith(ctx, err)
		return
	}
	png, err := qrcode.Encode(c.joinLink(room.Code), qrcode.Medium, qrSize)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

func (c *RoomController) joinLink(code string) string {
	return c.publicURL + "/rooms/" + code
}
