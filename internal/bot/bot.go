package bot

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"packing-planner/internal/charts"
	"packing-planner/internal/config"
	"packing-planner/internal/model"
	"packing-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTripName
	stageTripDate
	stageTripTemplate
	stageTemplateName
	stageTemplatePrompt
	stageItemName
	stageItemCategory
	stageAwaitPhoto
	stageCopyTarget
	stageConfirmDeleteList
	stageCategoryName
	stageCategoryIcon
)

const (
	cbOpenPrefix   = "open:"
	cbTogglePrefix = "toggle:"
)

const (
	btnSkip           = "⏭️ Skip"
	btnYes            = "Yes"
	btnNo             = "No"
	btnCancelDialog   = "⏪ Cancel input"
	btnEmptyList      = "Fresh empty list"
	menuLabelNewTrip  = "➕ New trip"
	menuLabelTrips    = "🧳 Trips"
	menuLabelPacking  = "📋 Packing list"
	menuLabelTemplate = "📦 Templates"
	menuLabelHelp     = "ℹ️ Help"
)

type conversationState struct {
	stage        conversationStage
	tripName     string
	tripDate     *time.Time
	templateName string
	itemName     string
	itemID       string
}

// Bot aggregates the Telegram API with the planner services.
type Bot struct {
	api         *tgbotapi.BotAPI
	planner     *service.PlannerService
	suggestions *service.SuggestionService
	reminders   *service.ReminderService
	charts      *charts.ChartGenerator
	config      *config.Config

	mu            sync.Mutex
	conversations map[int64]*conversationState
	activeLists   map[int64]string
}

func New(token string, planner *service.PlannerService, suggestions *service.SuggestionService, reminders *service.ReminderService, chartGen *charts.ChartGenerator, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		planner:       planner,
		suggestions:   suggestions,
		reminders:     reminders,
		charts:        chartGen,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
		activeLists:   make(map[int64]string),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if update.CallbackQuery.Message == nil || !b.allowedChat(update.CallbackQuery.Message.Chat.ID) {
				continue
			}
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if !b.allowedChat(update.Message.Chat.ID) {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) allowedChat(chatID int64) bool {
	return b.config == nil || b.config.OwnerChatID == 0 || b.config.OwnerChatID == chatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if len(msg.Photo) > 0 {
		return b.handlePhoto(ctx, msg)
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		b.clearConversation(msg.Chat.ID)
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.Chat.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Try /newtrip to plan a trip, or /help for all commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "newtrip":
		return b.startNewTripConversation(msg)
	case "trips":
		return b.handleTrips(msg)
	case "newtemplate":
		return b.startNewTemplateConversation(msg)
	case "templates":
		return b.handleTemplates(msg)
	case "list":
		return b.handleShowList(msg.Chat.ID)
	case "additem":
		return b.startAddItemConversation(msg)
	case "delitem":
		return b.handleDeleteItems(ctx, msg)
	case "copy":
		return b.startCopyConversation(msg)
	case "photo":
		return b.startPhotoConversation(msg)
	case "clearphoto":
		return b.handleClearPhoto(ctx, msg)
	case "chart":
		return b.handleChart(msg)
	case "setdate":
		return b.handleSetDate(ctx, msg)
	case "categories":
		return b.handleCategories(msg)
	case "newcategory":
		return b.startNewCategoryConversation(msg)
	case "delcategory":
		return b.handleDeleteCategory(ctx, msg)
	case "deletelist":
		return b.startDeleteListConversation(msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "traveller"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep your packing lists so nothing gets left behind.</b>\n\nCommands:\n"+
			"• /newtrip — plan a trip (optionally from a template)\n"+
			"• /trips — your trips and their packing progress\n"+
			"• /newtemplate — build a master template, with AI suggestions if you like\n"+
			"• /templates — your master templates\n"+
			"• /list — the currently open packing list\n"+
			"• /help — everything else",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /newtrip — plan a trip, pick a template to start from\n" +
		"• /trips — trips with packing progress, tap to open\n" +
		"• /newtemplate — new master template, optional AI prompt\n" +
		"• /templates — master templates, tap to open\n" +
		"• /list — show the open list; tap an item to pack/unpack it\n" +
		"• /additem — add an item to the open list\n" +
		"• /delitem &lt;n&gt; [n...] — remove items by their /list numbers\n" +
		"• /copy &lt;n&gt; — copy an item from the open list into a template\n" +
		"• /photo &lt;n&gt; — attach the next photo you send to an item\n" +
		"• /clearphoto &lt;n&gt; — remove an item's photo\n" +
		"• /chart — packing progress chart for the open list\n" +
		"• /setdate &lt;YYYY-MM-DD|clear&gt; — set the open trip's date\n" +
		"• /categories — categories; /newcategory, /delcategory &lt;n&gt;\n" +
		"• /deletelist — delete the open list (and its trip)\n" +
		"• /cancel — abort the current input"
	return b.sendText(msg.Chat.ID, text)
}

// --- trips ---

func (b *Bot) startNewTripConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageTripName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Planning a new trip.\n<b>Step 1:</b> what should we call it?", cancelKeyboard())
}

func (b *Bot) startNewTemplateConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageTemplateName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "📦 New master template.\n<b>Step 1:</b> give it a name.", cancelKeyboard())
}

func (b *Bot) handleTrips(msg *tgbotapi.Message) error {
	holidays := b.planner.Holidays()
	if len(holidays) == 0 {
		return b.sendText(msg.Chat.ID, "No trips yet. Plan one with /newtrip.")
	}

	var builder strings.Builder
	builder.WriteString("🧳 <b>Your trips</b>\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, holiday := range holidays {
		list, ok := b.planner.ListByID(holiday.ListID)
		if !ok {
			continue
		}
		builder.WriteString(fmt.Sprintf("• <b>%s</b> — %d%% packed (%d/%d)",
			escape(holiday.Name), list.Progress(), list.PackedCount(), len(list.Items)))
		if holiday.Date != nil {
			builder.WriteString(fmt.Sprintf(" · 🗓 %s", holiday.Date.Format("2006-01-02")))
		}
		builder.WriteByte('\n')
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📋 "+shortTitle(holiday.Name, 28), cbOpenPrefix+list.ID),
		})
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err := b.api.Send(out)
	return err
}

func (b *Bot) handleTemplates(msg *tgbotapi.Message) error {
	templates := b.planner.Templates()
	if len(templates) == 0 {
		return b.sendText(msg.Chat.ID, "No master templates yet. Create one with /newtemplate.")
	}

	var builder strings.Builder
	builder.WriteString("📦 <b>Master templates</b>\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, tpl := range templates {
		builder.WriteString(fmt.Sprintf("• <b>%s</b> — %d item(s)\n", escape(tpl.Name), len(tpl.Items)))
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📋 "+shortTitle(tpl.Name, 28), cbOpenPrefix+tpl.ID),
		})
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err := b.api.Send(out)
	return err
}

// --- conversations ---

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTripName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The trip needs a name.", cancelKeyboard())
		}
		state.tripName = text
		state.stage = stageTripDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "🗓 When does it start? Use <code>2026-09-14</code> (or Skip).", skipKeyboard())
	case stageTripDate:
		if !isSkipInput(text) {
			parsed, err := time.Parse("2006-01-02", text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "I can't read that date. Use <code>2026-09-14</code> or Skip.", skipKeyboard())
			}
			state.tripDate = &parsed
		}
		state.stage = stageTripTemplate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📦 Start from a template?", b.templateKeyboard(true))
	case stageTripTemplate:
		templateID := ""
		if !strings.EqualFold(text, btnEmptyList) && !isSkipInput(text) {
			tpl, ok := b.templateByName(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick a template from the keyboard, or choose the empty list.", b.templateKeyboard(true))
			}
			templateID = tpl.ID
		}
		holiday, list := b.planner.CreateHoliday(ctx, state.tripName, templateID, state.tripDate)
		b.clearConversation(msg.Chat.ID)
		b.setActiveList(msg.Chat.ID, list.ID)
		log.Printf("[info] trip created holiday=%s list=%s items=%d", holiday.ID, list.ID, len(list.Items))
		if err := b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("✅ Trip <b>%s</b> is ready.", escape(holiday.Name))); err != nil {
			return err
		}
		return b.handleShowList(msg.Chat.ID)
	case stageTemplateName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The template needs a name.", cancelKeyboard())
		}
		state.templateName = text
		state.stage = stageTemplatePrompt
		prompt := "🪄 Describe the trip and I'll ask the AI for suggestions, e.g. <i>2 weeks in Japan during winter</i> (or Skip)."
		if !b.suggestions.Enabled() {
			prompt = "Suggestions are not configured, the template will start empty. Send anything (or Skip)."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, skipKeyboard())
	case stageTemplatePrompt:
		b.clearConversation(msg.Chat.ID)
		list := b.planner.CreateList(ctx, state.templateName, true, "")
		b.setActiveList(msg.Chat.ID, list.ID)
		log.Printf("[info] template created list=%s", list.ID)
		if err := b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("✅ Template <b>%s</b> created.", escape(list.Name))); err != nil {
			return err
		}
		if !isSkipInput(text) && b.suggestions.Enabled() {
			// The template is already visible; the list fills in when (and
			// if) the call comes back.
			if err := b.sendText(msg.Chat.ID, "✨ <b>AI generating…</b>"); err != nil {
				return err
			}
			added := b.suggestions.FillList(ctx, list.ID, text)
			if added > 0 {
				if err := b.sendText(msg.Chat.ID, fmt.Sprintf("🪄 Added %d suggested item(s).", added)); err != nil {
					return err
				}
			} else {
				if err := b.sendText(msg.Chat.ID, "🤷 No suggestions this time — the template is ready to fill by hand."); err != nil {
					return err
				}
			}
		}
		return b.handleShowList(msg.Chat.ID)
	case stageItemName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The item needs a name.", cancelKeyboard())
		}
		state.itemName = text
		state.stage = stageItemCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category (or Skip for the default).", b.categoryKeyboard())
	case stageItemCategory:
		categoryID := ""
		if !isSkipInput(text) {
			if cat, ok := b.categoryByLabel(text); ok {
				categoryID = cat.ID
			}
		}
		listID, _ := b.getActiveList(msg.Chat.ID)
		item, ok := b.planner.AddItem(ctx, listID, state.itemName, categoryID, "")
		b.clearConversation(msg.Chat.ID)
		if !ok {
			return b.sendTextWithRemove(msg.Chat.ID, "The open list is gone. Open another with /trips or /templates.")
		}
		log.Printf("[info] item added list=%s item=%s", listID, item.ID)
		if err := b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("✅ Added <b>%s</b>.", escape(item.Name))); err != nil {
			return err
		}
		return b.handleShowList(msg.Chat.ID)
	case stageCopyTarget:
		tpl, ok := b.templateByName(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick a template from the keyboard.", b.templateKeyboard(false))
		}
		listID, _ := b.getActiveList(msg.Chat.ID)
		item, copied := b.planner.CopyItemToList(ctx, listID, state.itemID, tpl.ID)
		b.clearConversation(msg.Chat.ID)
		if !copied {
			return b.sendTextWithRemove(msg.Chat.ID, "Couldn't copy the item, it may have been removed.")
		}
		return b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("📦 <b>%s</b> copied into <b>%s</b>.", escape(item.Name), escape(tpl.Name)))
	case stageConfirmDeleteList:
		b.clearConversation(msg.Chat.ID)
		if !strings.EqualFold(text, btnYes) {
			return b.sendTextWithRemove(msg.Chat.ID, "Nothing deleted.")
		}
		listID, _ := b.getActiveList(msg.Chat.ID)
		list, _ := b.planner.ListByID(listID)
		if !b.planner.DeleteList(ctx, listID) {
			return b.sendTextWithRemove(msg.Chat.ID, "The list was already gone.")
		}
		b.clearActiveList(msg.Chat.ID)
		log.Printf("[info] list deleted list=%s", listID)
		return b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("🗑 <b>%s</b> deleted.", escape(list.Name)))
	case stageCategoryName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The category needs a name.", cancelKeyboard())
		}
		state.itemName = text
		state.stage = stageCategoryIcon
		return b.sendWithReplyMarkup(msg.Chat.ID, "Pick an icon (or Skip).", iconKeyboard())
	case stageCategoryIcon:
		icon := "🏷️"
		if !isSkipInput(text) && text != "" {
			icon = text
		}
		cat := b.planner.SaveCategory(ctx, model.CategoryDef{Name: state.itemName, Icon: icon, Color: "#64748B"})
		b.clearConversation(msg.Chat.ID)
		log.Printf("[info] category saved id=%s", cat.ID)
		return b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("✅ Category %s <b>%s</b> saved.", cat.Icon, escape(cat.Name)))
	case stageAwaitPhoto:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Send a photo, or cancel the input.", cancelKeyboard())
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try again from the menu.")
	}
}

// --- items ---

func (b *Bot) startAddItemConversation(msg *tgbotapi.Message) error {
	if _, ok := b.requireActiveList(msg.Chat.ID); !ok {
		return b.sendText(msg.Chat.ID, "Open a list first: /trips or /templates.")
	}
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageItemName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 What should we pack?", cancelKeyboard())
}

func (b *Bot) handleDeleteItems(ctx context.Context, msg *tgbotapi.Message) error {
	list, ok := b.requireActiveList(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "Open a list first: /trips or /templates.")
	}
	indexes, err := parseIndexes(msg.CommandArguments())
	if err != nil || len(indexes) == 0 {
		return b.sendText(msg.Chat.ID, "Give the /list numbers to remove, e.g. /delitem 2 4")
	}
	var ids []string
	for _, n := range indexes {
		if n < 1 || n > len(list.Items) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("There is no item %d, the list has %d.", n, len(list.Items)))
		}
		ids = append(ids, list.Items[n-1].ID)
	}
	removed := b.planner.DeleteItems(ctx, list.ID, ids)
	log.Printf("[info] items deleted list=%s count=%d", list.ID, removed)
	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Removed %d item(s).", removed)); err != nil {
		return err
	}
	return b.handleShowList(msg.Chat.ID)
}

func (b *Bot) startCopyConversation(msg *tgbotapi.Message) error {
	list, ok := b.requireActiveList(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "Open a list first: /trips or /templates.")
	}
	item, ok := itemByIndex(list, msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give the /list number to copy, e.g. /copy 3")
	}
	if len(b.planner.Templates()) == 0 {
		return b.sendText(msg.Chat.ID, "No templates to copy into. Create one with /newtemplate.")
	}
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageCopyTarget, itemID: item.ID})
	return b.sendWithReplyMarkup(msg.Chat.ID,
		fmt.Sprintf("📦 Copy <b>%s</b> into which template?", escape(item.Name)), b.templateKeyboard(false))
}

func (b *Bot) startPhotoConversation(msg *tgbotapi.Message) error {
	list, ok := b.requireActiveList(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "Open a list first: /trips or /templates.")
	}
	item, ok := itemByIndex(list, msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give the /list number, e.g. /photo 3")
	}
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageAwaitPhoto, itemID: item.ID})
	return b.sendWithReplyMarkup(msg.Chat.ID,
		fmt.Sprintf("📷 Send a photo for <b>%s</b>.", escape(item.Name)), cancelKeyboard())
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil || state.stage != stageAwaitPhoto {
		return b.sendText(msg.Chat.ID, "Nice photo! Use /photo <n> first to attach it to an item.")
	}

	// Telegram sends several sizes; the last one is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	dataURI, err := b.downloadAsDataURI(photo.FileID)
	if err != nil {
		log.Printf("download photo: %v", err)
		return b.sendTextWithRemove(msg.Chat.ID, "Couldn't fetch the photo from Telegram, try again.")
	}

	listID, _ := b.getActiveList(msg.Chat.ID)
	ok := b.planner.SetItemImage(ctx, listID, state.itemID, dataURI)
	b.clearConversation(msg.Chat.ID)
	if !ok {
		return b.sendTextWithRemove(msg.Chat.ID, "The item is gone, photo not attached.")
	}
	log.Printf("[info] photo attached list=%s item=%s bytes=%d", listID, state.itemID, len(dataURI))
	return b.sendTextWithRemove(msg.Chat.ID, "📷 Photo attached.")
}

func (b *Bot) handleClearPhoto(ctx context.Context, msg *tgbotapi.Message) error {
	list, ok := b.requireActiveList(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "Open a list first: /trips or /templates.")
	}
	item, ok := itemByIndex(list, msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give the /list number, e.g. /clearphoto 3")
	}
	if item.Image == "" {
		return b.sendText(msg.Chat.ID, "That item has no photo.")
	}
	b.planner.SetItemImage(ctx, list.ID, item.ID, "")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📷 Photo removed from <b>%s</b>.", escape(item.Name)))
}

func (b *Bot) downloadAsDataURI(fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}
	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// --- list view ---

func (b *Bot) handleShowList(chatID int64) error {
	list, ok := b.requireActiveList(chatID)
	if !ok {
		return b.sendText(chatID, "No list is open. Pick one via /trips or /templates.")
	}

	var builder strings.Builder
	if list.IsTemplate {
		builder.WriteString(fmt.Sprintf("📦 <b>%s</b> <i>(template)</i>\n", escape(list.Name)))
	} else {
		builder.WriteString(fmt.Sprintf("🧳 <b>%s</b>\n", escape(list.Name)))
		if holiday, ok := b.planner.HolidayForList(list.ID); ok && holiday.Date != nil {
			builder.WriteString(fmt.Sprintf("🗓 %s\n", holiday.Date.Format("2006-01-02")))
		}
		builder.WriteString(fmt.Sprintf("📊 %d%% packed (%d/%d)\n", list.Progress(), list.PackedCount(), len(list.Items)))
	}

	if len(list.Items) == 0 {
		builder.WriteString("\nThe list is empty. Add something with /additem.")
		return b.sendText(chatID, builder.String())
	}

	// Numbers follow list order and stay valid for /delitem, /copy, /photo
	// even though display groups by category.
	numbers := make(map[string]int, len(list.Items))
	for i, item := range list.Items {
		numbers[item.ID] = i + 1
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, cat := range b.planner.Categories() {
		var section []model.PackingItem
		for _, item := range list.Items {
			if item.CategoryID == cat.ID {
				section = append(section, item)
			}
		}
		if len(section) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("\n%s <b>%s</b>\n", cat.Icon, escape(cat.Name)))
		for _, item := range section {
			builder.WriteString(formatItem(item, numbers[item.ID]))
			if !list.IsTemplate {
				label := fmt.Sprintf("%s %d · %s", checkbox(item.IsPacked), numbers[item.ID], shortTitle(item.Name, 14))
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbTogglePrefix+item.ID))
				if len(row) == 2 {
					buttons = append(buttons, row)
					row = nil
				}
			}
		}
	}
	if len(row) > 0 {
		buttons = append(buttons, row)
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	out.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err := b.api.Send(out)
	return err
}

func formatItem(item model.PackingItem, number int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>%d.</b> %s", checkbox(item.IsPacked), number, escape(item.Name)))
	if item.Image != "" {
		sb.WriteString(" 📷")
	}
	if item.Notes != "" {
		sb.WriteString(fmt.Sprintf(" — <i>%s</i>", escape(item.Notes)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func checkbox(packed bool) string {
	if packed {
		return "✅"
	}
	return "⬜"
}

func (b *Bot) handleChart(msg *tgbotapi.Message) error {
	list, ok := b.requireActiveList(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "Open a list first: /trips or /templates.")
	}
	png, err := b.charts.ListProgress(list, b.planner.Categories())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Couldn't draw the chart, sorry.")
	}
	if png == nil {
		return b.sendText(msg.Chat.ID, "Nothing to chart yet, the list is empty.")
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: "progress.png", Bytes: png})
	photo.Caption = fmt.Sprintf("%s — %d%% packed", list.Name, list.Progress())
	_, err = b.api.Send(photo)
	return err
}

func (b *Bot) handleSetDate(ctx context.Context, msg *tgbotapi.Message) error {
	list, ok := b.requireActiveList(msg.Chat.ID)
	if !ok || list.IsTemplate {
		return b.sendText(msg.Chat.ID, "Open a trip list first via /trips.")
	}
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Usage: /setdate 2026-09-14 (or /setdate clear)")
	}
	if strings.EqualFold(args, "clear") {
		b.planner.SetHolidayDate(ctx, list.ID, nil)
		return b.sendText(msg.Chat.ID, "🗓 Trip date cleared.")
	}
	parsed, err := time.Parse("2006-01-02", args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "I can't read that date. Use <code>2026-09-14</code>.")
	}
	if !b.planner.SetHolidayDate(ctx, list.ID, &parsed) {
		return b.sendText(msg.Chat.ID, "This list has no trip attached.")
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗓 Trip date set to %s.", parsed.Format("2006-01-02")))
}

func (b *Bot) startDeleteListConversation(msg *tgbotapi.Message) error {
	list, ok := b.requireActiveList(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "Open a list first: /trips or /templates.")
	}
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageConfirmDeleteList})
	warning := fmt.Sprintf("Delete <b>%s</b>?", escape(list.Name))
	if !list.IsTemplate {
		warning = fmt.Sprintf("Delete <b>%s</b>? The trip goes with it.", escape(list.Name))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, warning, yesNoKeyboard())
}

// --- categories ---

func (b *Bot) handleCategories(msg *tgbotapi.Message) error {
	categories := b.planner.Categories()
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for i, cat := range categories {
		builder.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, cat.Icon, escape(cat.Name)))
	}
	builder.WriteString("\n/newcategory adds one, /delcategory &lt;n&gt; removes one.")
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) startNewCategoryConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageCategoryName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Name for the new category?", cancelKeyboard())
}

func (b *Bot) handleDeleteCategory(ctx context.Context, msg *tgbotapi.Message) error {
	categories := b.planner.Categories()
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || n < 1 || n > len(categories) {
		return b.sendText(msg.Chat.ID, "Give the /categories number, e.g. /delcategory 3")
	}
	doomed := categories[n-1]
	if !b.planner.DeleteCategory(ctx, doomed.ID) {
		return b.sendText(msg.Chat.ID, "The last category can't be deleted.")
	}
	log.Printf("[info] category deleted id=%s", doomed.ID)
	remaining := b.planner.Categories()
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"🗑 %s <b>%s</b> deleted. Its items moved to %s <b>%s</b>.",
		doomed.Icon, escape(doomed.Name), remaining[0].Icon, escape(remaining[0].Name)))
}

// --- callbacks ---

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbOpenPrefix):
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("callback ack: %v", err)
		}
		listID := strings.TrimPrefix(data, cbOpenPrefix)
		if _, ok := b.planner.ListByID(listID); !ok {
			return b.sendText(chatID, "That list no longer exists.")
		}
		b.setActiveList(chatID, listID)
		return b.handleShowList(chatID)
	case strings.HasPrefix(data, cbTogglePrefix):
		itemID := strings.TrimPrefix(data, cbTogglePrefix)
		listID, ok := b.getActiveList(chatID)
		if !ok {
			if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "No list open")); err != nil {
				log.Printf("callback ack: %v", err)
			}
			return nil
		}
		item, toggled := b.planner.TogglePacked(ctx, listID, itemID)
		note := "Item not found"
		if toggled {
			if item.IsPacked {
				note = "Packed: " + shortTitle(item.Name, 40)
			} else {
				note = "Unpacked: " + shortTitle(item.Name, 40)
			}
		}
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, note)); err != nil {
			log.Printf("callback ack: %v", err)
		}
		if !toggled {
			return nil
		}
		return b.handleShowList(chatID)
	default:
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("callback ack: %v", err)
		}
		return nil
	}
}

// SendTripReminder pushes the daily packing summary to the owner chat. A
// no-op when no owner chat is configured or nothing needs packing.
func (b *Bot) SendTripReminder(ctx context.Context) error {
	if b.config == nil || b.config.OwnerChatID == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	text, ok := b.reminders.TripSummary(time.Now())
	if !ok {
		return nil
	}
	return b.sendText(b.config.OwnerChatID, text)
}

// --- send helpers ---

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// --- per-chat state ---

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func (b *Bot) setActiveList(chatID int64, listID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeLists[chatID] = listID
}

func (b *Bot) getActiveList(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.activeLists[chatID]
	return id, ok
}

func (b *Bot) clearActiveList(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.activeLists, chatID)
}

// requireActiveList resolves the chat's open list, dropping a stale
// reference to a deleted list.
func (b *Bot) requireActiveList(chatID int64) (model.PackingList, bool) {
	listID, ok := b.getActiveList(chatID)
	if !ok {
		return model.PackingList{}, false
	}
	list, ok := b.planner.ListByID(listID)
	if !ok {
		b.clearActiveList(chatID)
		return model.PackingList{}, false
	}
	return list, true
}

// --- lookup helpers ---

func (b *Bot) templateByName(name string) (model.PackingList, bool) {
	name = strings.TrimSpace(name)
	for _, tpl := range b.planner.Templates() {
		if strings.EqualFold(tpl.Name, name) {
			return tpl, true
		}
	}
	return model.PackingList{}, false
}

// categoryByLabel matches keyboard labels like "👕 Clothing" as well as
// plain names.
func (b *Bot) categoryByLabel(label string) (model.CategoryDef, bool) {
	label = strings.TrimSpace(label)
	for _, cat := range b.planner.Categories() {
		if strings.EqualFold(label, cat.Name) || strings.EqualFold(label, cat.Icon+" "+cat.Name) {
			return cat, true
		}
	}
	return model.CategoryDef{}, false
}

func itemByIndex(list model.PackingList, args string) (model.PackingItem, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 || n > len(list.Items) {
		return model.PackingItem{}, false
	}
	return list.Items[n-1], true
}

func parseIndexes(args string) ([]int, error) {
	var out []int
	for _, field := range strings.Fields(args) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (b *Bot) handleMenuAlias(msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTrip):
		return true, b.startNewTripConversation(msg)
	case strings.ToLower(menuLabelTrips):
		return true, b.handleTrips(msg)
	case strings.ToLower(menuLabelPacking):
		return true, b.handleShowList(msg.Chat.ID)
	case strings.ToLower(menuLabelTemplate):
		return true, b.handleTemplates(msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

// --- keyboards ---

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTrip),
			tgbotapi.NewKeyboardButton(menuLabelTrips),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPacking),
			tgbotapi.NewKeyboardButton(menuLabelTemplate),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func (b *Bot) categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, cat := range b.planner.Categories() {
		row = append(row, tgbotapi.NewKeyboardButton(cat.Icon+" "+cat.Name))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func (b *Bot) templateKeyboard(withEmpty bool) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	if withEmpty {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnEmptyList)))
	}
	for _, tpl := range b.planner.Templates() {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(tpl.Name)))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func iconKeyboard() tgbotapi.ReplyKeyboardMarkup {
	icons := []string{"⭐", "👕", "🧼", "🔌", "🛂", "💊", "📦", "🏖️", "⛰️", "📷", "🎫", "📚", "🎧", "🕶️", "👟", "🔑"}
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, icon := range icons {
		row = append(row, tgbotapi.NewKeyboardButton(icon))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}
