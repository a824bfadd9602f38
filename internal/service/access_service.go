package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/nyxv/vpn_bot_server/internal/model"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/storage"
)

// PurchasePrefix 购买动作回调载荷的保留前缀
const PurchasePrefix = "purchase"

// intentSeparator 对话栈在回调数据前拼接的导航前缀分隔符
const intentSeparator = "\x1d"

var ErrUnknownAccessMode = errors.New("未知的访问模式")

// Event 入站事件的最小视图，由网关转发。
// CallbackData 为空表示普通消息而非按钮回调。
type Event struct {
	CallbackData string `json:"callback_data"`
}

// AccessService 进程间共享的访问模式状态机与等待队列。
// 模式与队列都放在共享存储里：到处都可能有并发 worker 在读写，
// 任何一步都不在进程内缓存模式值。
type AccessService struct {
	storage  *storage.Storage
	notifier Notifier
}

func NewAccessService(st *storage.Storage, notifier Notifier) *AccessService {
	return &AccessService{
		storage:  st,
		notifier: notifier,
	}
}

// IsAccessAllowed 入站事件的统一准入判定。
// 存储不可用时必须报错让调用方失败：没有真实策略状态时放行和拒绝都不安全。
func (s *AccessService) IsAccessAllowed(ctx context.Context, user *dto.User, event *Event) (bool, error) {
	if user.IsBlocked {
		log.Printf("User '%d' access denied (user blocked)", user.TelegramID)
		return false, nil
	}

	mode, err := s.CurrentMode(ctx)
	if err != nil {
		return false, err
	}

	if mode == model.AccessModeAll {
		return true, nil
	}

	if user.IsPrivileged() {
		log.Printf("User '%d' access allowed (privileged user)", user.TelegramID)
		return true, nil
	}

	switch mode {
	case model.AccessModeBlocked:
		log.Printf("User '%d' access denied (mode: blocked)", user.TelegramID)
		s.notifier.NotifyAccessDenied(ctx, user.TelegramID, NtfAccessDenied)
		return false, nil

	case model.AccessModePurchase:
		if !isPurchaseAction(event) {
			return true, nil
		}

		log.Printf("User '%d' access denied (mode: no purchases)", user.TelegramID)
		s.notifier.NotifyAccessDenied(ctx, user.TelegramID, NtfAccessDeniedPurchase)

		// 幂等入队：已在队列里就不重复加、不重复记日志
		isMember, err := s.storage.CollectionIsMember(ctx, storage.AccessWaitlistKey, formatUserID(user.TelegramID))
		if err != nil {
			return false, err
		}
		if !isMember {
			if _, err := s.AddUserToWaitlist(ctx, user.TelegramID); err != nil {
				return false, err
			}
		}
		return false, nil

	case model.AccessModeInvited:
		invited, err := s.IsInvited(ctx, user)
		if err != nil {
			return false, err
		}
		if invited {
			log.Printf("User '%d' access allowed (mode: invited)", user.TelegramID)
			return true, nil
		}
		log.Printf("User '%d' access denied (not invited)", user.TelegramID)
		return false, nil

	default:
		// 未知模式一律拒绝，绝不默认放行
		log.Printf("Warning: unknown access mode '%s', denying user '%d'", mode, user.TelegramID)
		return false, nil
	}
}

// IsInvited 邀请校验
func (s *AccessService) IsInvited(ctx context.Context, user *dto.User) (bool, error) {
	// TODO: 接入真实的邀请/推荐校验
	return true, nil
}

// CurrentMode 从共享存储读取当前模式，缺省为 all
func (s *AccessService) CurrentMode(ctx context.Context) (model.AccessMode, error) {
	value, err := s.storage.Get(ctx, storage.AccessModeKey, string(model.AccessModeAll))
	if err != nil {
		return "", err
	}
	return model.AccessMode(value), nil
}

// AvailableModes 除当前模式外的全部模式，供后台切换菜单
func (s *AccessService) AvailableModes(ctx context.Context) ([]model.AccessMode, error) {
	current, err := s.CurrentMode(ctx)
	if err != nil {
		return nil, err
	}

	modes := make([]model.AccessMode, 0, len(model.AllAccessModes)-1)
	for _, mode := range model.AllAccessModes {
		if mode != current {
			modes = append(modes, mode)
		}
	}
	return modes, nil
}

// SetMode 切换访问模式。切到 all/invited 时对当前等待队列发一次批量
// “已开放”通知；之后无论切到哪个模式都无条件清空队列，避免模式来回
// 切换时残留旧名单。
func (s *AccessService) SetMode(ctx context.Context, mode model.AccessMode) error {
	if !mode.Valid() {
		return ErrUnknownAccessMode
	}

	if err := s.storage.Set(ctx, storage.AccessModeKey, string(mode), 0); err != nil {
		return err
	}
	log.Printf("Access mode changed to '%s'", mode)

	if mode == model.AccessModeAll || mode == model.AccessModeInvited {
		waiting, err := s.WaitingUsers(ctx)
		if err != nil {
			return err
		}
		if len(waiting) > 0 {
			log.Printf("Notifying %d waiting users about access opening", len(waiting))
			s.notifier.NotifyAccessOpened(ctx, waiting)
		}
	}

	return s.ClearWaitlist(ctx)
}

// AddUserToWaitlist 等待队列添加，返回是否真的新增
func (s *AccessService) AddUserToWaitlist(ctx context.Context, telegramID int64) (bool, error) {
	added, err := s.storage.CollectionAdd(ctx, storage.AccessWaitlistKey, formatUserID(telegramID))
	if err != nil {
		return false, err
	}

	if added {
		log.Printf("User '%d' added to access waitlist", telegramID)
	} else {
		log.Printf("User '%d' already in access waitlist", telegramID)
	}
	return added, nil
}

// RemoveUserFromWaitlist 等待队列移除，返回是否真的移除
func (s *AccessService) RemoveUserFromWaitlist(ctx context.Context, telegramID int64) (bool, error) {
	removed, err := s.storage.CollectionRemove(ctx, storage.AccessWaitlistKey, formatUserID(telegramID))
	if err != nil {
		return false, err
	}

	if removed {
		log.Printf("User '%d' removed from access waitlist", telegramID)
	} else {
		log.Printf("User '%d' not found in access waitlist", telegramID)
	}
	return removed, nil
}

// WaitingUsers 等待队列全量成员
func (s *AccessService) WaitingUsers(ctx context.Context) ([]int64, error) {
	members, err := s.storage.CollectionMembers(ctx, storage.AccessWaitlistKey)
	if err != nil {
		return nil, err
	}

	users := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			log.Printf("Warning: skipping malformed waitlist member '%s'", member)
			continue
		}
		users = append(users, id)
	}
	return users, nil
}

// ClearWaitlist 整体清空等待队列
func (s *AccessService) ClearWaitlist(ctx context.Context) error {
	if err := s.storage.Delete(ctx, storage.AccessWaitlistKey); err != nil {
		return err
	}
	log.Println("Access waitlist completely cleared")
	return nil
}

// isPurchaseAction 识别购买动作：去掉对话栈导航前缀后，
// 载荷必须以保留前缀开头（前缀精确匹配，不做子串搜索）
func isPurchaseAction(event *Event) bool {
	if event == nil || event.CallbackData == "" {
		return false
	}

	parts := strings.Split(event.CallbackData, intentSeparator)
	payload := parts[len(parts)-1]

	if strings.HasPrefix(payload, PurchasePrefix) {
		log.Printf("Detected purchase action: %s", payload)
		return true
	}
	return false
}

func formatUserID(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}
