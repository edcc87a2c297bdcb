package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"staffhub/backend/config"
	"staffhub/backend/internal/model"
	"staffhub/backend/internal/repository"
	pkgerrors "staffhub/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoMembers    = errors.New("可见范围内没有用户")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 月度考勤导出为 Excel (.xlsx)，范围为操作者可见的全部用户
//   - 对账口径与月度视图完全一致（同一纯函数）
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportMonthlyAttendance 导出某年某月的考勤汇总
	ExportMonthlyAttendance(ctx context.Context, rc *RequestContext, year, month int, callerID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	resolver PermissionResolver
	logger   *zap.Logger
	loc      *time.Location
	defBreak int
	now      func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, repo *repository.Repository, resolver PermissionResolver, logger *zap.Logger) ExportService {
	loc, err := time.LoadLocation(cfg.Shift.Timezone)
	if err != nil {
		loc = time.Local
	}
	return &exportService{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		loc:      loc,
		defBreak: cfg.Shift.DefaultBreakMinutes,
		now:      time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportMonthlyAttendance — 导出月度考勤汇总为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "汇总"：每用户一行（姓名 / 企业 / 出勤天数 / 实働时间 / 迟到 / 缺勤）
//   - Sheet 每用户：逐日明细（日期 / 班次 / 打卡 / 实働 / 判定）
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportMonthlyAttendance(ctx context.Context, rc *RequestContext, year, month int, callerID string) (*bytes.Buffer, string, error) {
	// 1. 确定可见用户范围
	ids, err := s.resolver.AccessibleUserIDs(ctx, rc, callerID, model.CategoryAttendance, ActionView)
	if err != nil {
		return nil, "", err
	}
	if len(ids) == 0 {
		return nil, "", pkgerrors.ErrPermissionDenied
	}

	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询可见用户失败", zap.Error(err))
		return nil, "", err
	}
	if len(users) == 0 {
		return nil, "", ErrExportNoMembers
	}

	from, to := monthRange(year, month, s.loc)
	now := s.now().In(s.loc)

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "汇总"
	idx, _ := f.NewSheet(summarySheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetColWidth(summarySheet, "A", "A", 16)
	f.SetColWidth(summarySheet, "B", "B", 20)
	f.SetColWidth(summarySheet, "C", "G", 12)

	// 标题行
	f.SetCellValue(summarySheet, "A1", fmt.Sprintf("%d年%d月 — 考勤汇总", year, month))
	f.MergeCell(summarySheet, "A1", "G1")
	f.SetCellStyle(summarySheet, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"姓名", "企业", "出勤天数", "班次天数", "实働时间", "迟到次数", "缺勤天数"}
	for i, h := range headers {
		f.SetCellValue(summarySheet, cell(colName(i), 2), h)
	}

	row := 3
	for i := range users {
		user := &users[i]

		shifts, err := s.repo.Shift.ListByUserAndRange(ctx, user.UserID, from, to)
		if err != nil {
			s.logger.Error("查询月度班次失败", zap.Error(err))
			return nil, "", err
		}
		events, err := s.repo.Attendance.ListByUserAndRange(ctx, user.UserID, from, to)
		if err != nil {
			s.logger.Error("查询月度考勤事件失败", zap.Error(err))
			return nil, "", err
		}

		result := Reconcile(shifts, events, now, s.defBreak)

		companyName := "内勤"
		if user.Company != nil {
			companyName = user.Company.Name
		}

		f.SetCellValue(summarySheet, cell("A", row), user.Name)
		f.SetCellValue(summarySheet, cell("B", row), companyName)
		f.SetCellValue(summarySheet, cell("C", row), result.Totals.WorkDays)
		f.SetCellValue(summarySheet, cell("D", row), result.Totals.ScheduledDays)
		f.SetCellValue(summarySheet, cell("E", row), FormatWorkedTime(result.Totals.WorkedMinutes))
		f.SetCellValue(summarySheet, cell("F", row), result.Totals.LateCount)
		f.SetCellValue(summarySheet, cell("G", row), result.Totals.AbsentDays)
		row++

		if err := s.writeMemberSheet(f, user, &result); err != nil {
			return nil, "", err
		}
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("考勤汇总_%d-%02d.xlsx", year, month)
	return buf, filename, nil
}

// writeMemberSheet 单用户逐日明细 Sheet
func (s *exportService) writeMemberSheet(f *excelize.File, user *model.User, result *ReconcileResult) error {
	sheet := user.Name
	if _, err := f.NewSheet(sheet); err != nil {
		// 姓名重复或含非法字符时退回到 ID 前缀
		sheet = user.Name + "_" + user.UserID[:8]
		if _, err := f.NewSheet(sheet); err != nil {
			return ErrExportGenerateFail
		}
	}

	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "F", 10)
	f.SetColWidth(sheet, "G", "I", 9)

	headers := []string{"日期", "班次开始", "班次结束", "上班", "下班", "实働", "迟到", "缺勤"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}

	row := 2
	for i := range result.Days {
		day := &result.Days[i]
		f.SetCellValue(sheet, cell("A", row), day.Date.Format("2006-01-02"))
		if day.Shift != nil {
			f.SetCellValue(sheet, cell("B", row), day.Shift.StartTime.In(s.loc).Format("15:04"))
			f.SetCellValue(sheet, cell("C", row), day.Shift.EndTime.In(s.loc).Format("15:04"))
		}
		if day.ClockInAt != nil {
			f.SetCellValue(sheet, cell("D", row), day.ClockInAt.In(s.loc).Format("15:04"))
		}
		if day.ClockOutAt != nil {
			f.SetCellValue(sheet, cell("E", row), day.ClockOutAt.In(s.loc).Format("15:04"))
		}
		f.SetCellValue(sheet, cell("F", row), FormatWorkedTime(day.WorkedMinutes))
		f.SetCellValue(sheet, cell("G", row), triStateText(day.IsLate))
		f.SetCellValue(sheet, cell("H", row), triStateText(day.IsAbsent))
		row++
	}
	return nil
}

// triStateText 三态判定的导出文字：未评定输出 "-"
func triStateText(v *bool) string {
	switch {
	case v == nil:
		return "-"
	case *v:
		return "○"
	default:
		return ""
	}
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
