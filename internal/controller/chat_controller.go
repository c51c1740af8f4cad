package controller

import (
	"errors"
	"net/url"

	"paperchat/internal/dto"
	"paperchat/internal/pkg/serverutils"
	"paperchat/internal/service"
	"paperchat/pkg/chat/exchange"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	OpenConversation(ctx *fiber.Ctx) error
	ShowConversation(ctx *fiber.Ctx) error
	CloseConversation(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SyncSessions(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat/v1")
	h.Use(auth)
	h.Post("/conversations", c.OpenConversation)
	h.Get("/conversations/:id", c.ShowConversation)
	h.Delete("/conversations/:id", c.CloseConversation)
	h.Post("/conversations/:id/messages", c.SendMessage)
	h.Get("/sessions", c.ListSessions)
	h.Post("/sessions/sync", c.SyncSessions)
	h.Delete("/sessions/:paperId", c.DeleteSession)
	h.Post("/logout", c.Logout)
}

func viewerFrom(ctx *fiber.Ctx) service.Viewer {
	userId, _ := ctx.Locals(serverutils.LocalUserId).(string)
	token, _ := ctx.Locals(serverutils.LocalToken).(string)
	return service.Viewer{Scope: userId, Token: token}
}

// domainError maps service errors onto HTTP statuses.
func domainError(err error) error {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Conversation not found")
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, "No session for this paper")
	case errors.Is(err, exchange.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, "Message is empty")
	case errors.Is(err, exchange.ErrConversationNotOpen):
		return fiber.NewError(fiber.StatusConflict, "Conversation is not open")
	default:
		return err
	}
}

func (c *chatController) OpenConversation(ctx *fiber.Ctx) error {
	var req dto.OpenConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.OpenConversation(ctx.UserContext(), viewerFrom(ctx), &req)
	if err != nil {
		return domainError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success open conversation", res))
}

func (c *chatController) ShowConversation(ctx *fiber.Ctx) error {
	res, err := c.service.GetConversation(viewerFrom(ctx), ctx.Params("id"))
	if err != nil {
		return domainError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show conversation", res))
}

func (c *chatController) CloseConversation(ctx *fiber.Ctx) error {
	if err := c.service.CloseConversation(viewerFrom(ctx), ctx.Params("id")); err != nil {
		return domainError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success close conversation", nil))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.UserContext(), viewerFrom(ctx), ctx.Params("id"), req.Text)
	if err != nil {
		var exchangeErr *exchange.ExchangeError
		if errors.As(err, &exchangeErr) {
			body := &serverutils.BaseResponse[*dto.SendMessageResponse]{
				Success: false,
				Code:    fiber.StatusBadGateway,
				Message: exchangeErr.Message,
				Data:    &dto.SendMessageResponse{Error: exchangeErr.Message},
			}
			return ctx.Status(fiber.StatusBadGateway).JSON(body)
		}
		return domainError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	res := c.service.ListSessions(ctx.UserContext(), viewerFrom(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	paperId := ctx.Params("paperId")
	if unescaped, err := url.PathUnescape(paperId); err == nil {
		paperId = unescaped
	}

	if err := c.service.DeleteSession(ctx.UserContext(), viewerFrom(ctx), paperId); err != nil {
		return domainError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func (c *chatController) SyncSessions(ctx *fiber.Ctx) error {
	res, err := c.service.SyncFromRemote(ctx.UserContext(), viewerFrom(ctx))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Could not reach the chat service")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success sync sessions", res))
}

func (c *chatController) Logout(ctx *fiber.Ctx) error {
	c.service.Forget(ctx.UserContext(), viewerFrom(ctx))
	return ctx.JSON(serverutils.SuccessResponse[any]("Success logout", nil))
}
