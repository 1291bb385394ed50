package controller

import (
	"io"
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxSpeechBytes = 25 << 20

type TutorController struct {
	TutorService  *service.TutorService
	SpeechService *service.SpeechService
}

func NewTutorController(tutorService *service.TutorService, speechService *service.SpeechService) *TutorController {
	return &TutorController{
		TutorService:  tutorService,
		SpeechService: speechService,
	}
}

// Chat godoc
// @Summary Talk to the language tutor
// @Description Continues the given conversation or starts a new one when conversationId is 0.
// @Tags Tutor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.TutorChatRequest true "Message"
// @Success 200 {object} util.Response{data=service.TutorReply}
// @Failure 502 {object} util.Response "AI provider error"
// @Router /api/tutor/chat [post]
func (c *TutorController) Chat(ctx *gin.Context) {
	var req service.TutorChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.TutorService.Chat(ctx.Request.Context(), currentUserID(ctx), &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, reply)
}

// ChatStream godoc
// @Summary Talk to the tutor over server-sent events
// @Description Emits a "conversation" event with the id, then "message" chunks, then "done" or "error".
// @Tags Tutor
// @Accept json
// @Produce text/event-stream
// @Security BearerAuth
// @Param body body service.TutorChatRequest true "Message"
// @Router /api/tutor/chat/stream [post]
func (c *TutorController) ChatStream(ctx *gin.Context) {
	var req service.TutorChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	convID, chunks, errs, err := c.TutorService.ChatStream(ctx.Request.Context(), currentUserID(ctx), &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	ctx.SSEvent("conversation", gin.H{"conversationId": convID})
	ctx.Stream(func(w io.Writer) bool {
		chunk, ok := <-chunks
		if ok {
			ctx.SSEvent("message", chunk)
			return true
		}
		if err := <-errs; err != nil {
			ctx.SSEvent("error", err.Error())
			return false
		}
		ctx.SSEvent("done", gin.H{"conversationId": convID})
		return false
	})
}

// ListConversations godoc
// @Summary The caller's tutor conversations
// @Tags Tutor
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/tutor/conversations [get]
func (c *TutorController) ListConversations(ctx *gin.Context) {
	page, limit := pageParams(ctx)
	res, err := c.TutorService.ListConversations(currentUserID(ctx), page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// GetConversation godoc
// @Summary A conversation with its messages
// @Tags Tutor
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} util.Response{data=model.Conversation}
// @Failure 404 {object} util.Response
// @Router /api/tutor/conversations/{id} [get]
func (c *TutorController) GetConversation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	conv, err := c.TutorService.GetConversation(currentUserID(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, conv)
}

// DeleteConversation godoc
// @Summary Delete a conversation
// @Tags Tutor
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} util.Response
// @Router /api/tutor/conversations/{id} [delete]
func (c *TutorController) DeleteConversation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.TutorService.DeleteConversation(currentUserID(ctx), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Questions godoc
// @Summary Generate practice questions
// @Description Served from the daily cache when possible. Falls back to a built-in bank when the AI provider fails.
// @Tags Tutor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuestionRequest true "Question parameters"
// @Success 200 {object} util.Response{data=service.QuestionSet}
// @Router /api/tutor/questions [post]
func (c *TutorController) Questions(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	set, err := c.TutorService.Questions(ctx.Request.Context(), &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, set)
}

// SubmitSpeech godoc
// @Summary Upload a pronunciation recording
// @Description The audio is normalised, transcribed and scored against expectedText when given.
// @Tags Tutor
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param audio formData file true "Recording (max 120s)"
// @Param languageCode formData string true "Language code"
// @Param expectedText formData string false "Text the learner read aloud"
// @Success 201 {object} util.Response{data=model.SpeechSubmission}
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response "Transcription failed"
// @Router /api/tutor/speech [post]
func (c *TutorController) SubmitSpeech(ctx *gin.Context) {
	file, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "audio file is required")
		return
	}
	if file.Size > maxSpeechBytes {
		util.Error(ctx, http.StatusRequestEntityTooLarge, "recording must be smaller than 25MB")
		return
	}
	language := ctx.PostForm("languageCode")
	if language == "" {
		util.BadRequest(ctx, "languageCode is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	submission, err := c.SpeechService.Submit(ctx.Request.Context(), currentUserID(ctx), &service.SpeechUpload{
		Filename:     file.Filename,
		ContentType:  file.Header.Get("Content-Type"),
		Size:         file.Size,
		Reader:       src,
		LanguageCode: language,
		ExpectedText: ctx.PostForm("expectedText"),
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, submission)
}

// ListSpeech godoc
// @Summary Recent pronunciation submissions
// @Tags Tutor
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows" default(20)
// @Success 200 {object} util.Response{data=[]model.SpeechSubmission}
// @Router /api/tutor/speech [get]
func (c *TutorController) ListSpeech(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	list, err := c.SpeechService.List(currentUserID(ctx), limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
