package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
	"github.com/google/uuid"
)

// maxBOMDepth BOM展开最大层级
const maxBOMDepth = 99

// BOMStore BOM持久化契约
type BOMStore interface {
	Create(ctx context.Context, bom *entity.BOM) error
	Update(ctx context.Context, bom *entity.BOM) error
	FindByID(ctx context.Context, id string) (*entity.BOM, error)
	FindVersions(ctx context.Context, productID string) ([]entity.BOM, error)
	FindEffective(ctx context.Context, productID string, asOf time.Time) (*entity.BOM, error)
	FindWhereUsed(ctx context.Context, componentID string, asOf time.Time) ([]entity.BOM, error)
	CreateLine(ctx context.Context, line *entity.BOMLine) error
	UpdateLine(ctx context.Context, line *entity.BOMLine) error
	DeleteLine(ctx context.Context, id string) error
	FindLineByID(ctx context.Context, id string) (*entity.BOMLine, error)
}

type BOMService struct {
	store BOMStore
}

func NewBOMService(store BOMStore) *BOMService {
	return &BOMService{store: store}
}

// CreateBOMInput 创建BOM请求
type CreateBOMInput struct {
	ProductID     string     `json:"product_id" binding:"required"`
	Version       string     `json:"version"`
	EffectiveFrom *time.Time `json:"effective_from"`
	Notes         string     `json:"notes"`
}

// BOMLineInput BOM行项请求
type BOMLineInput struct {
	LineNumber    int        `json:"line_number" binding:"required"`
	ComponentID   string     `json:"component_id" binding:"required"`
	Quantity      float64    `json:"quantity" binding:"required,gt=0"`
	ScrapFactor   float64    `json:"scrap_factor"`
	Unit          string     `json:"unit"`
	OperationNo   *int       `json:"operation_no"`
	EffectiveFrom *time.Time `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
}

// Create 创建BOM（草稿状态）
func (s *BOMService) Create(ctx context.Context, input *CreateBOMInput, createdBy string) (*entity.BOM, error) {
	version := input.Version
	if version == "" {
		version = "v1.0"
	}
	if err := s.ensureVersionUnique(ctx, input.ProductID, version); err != nil {
		return nil, err
	}

	now := time.Now()
	effectiveFrom := now
	if input.EffectiveFrom != nil {
		effectiveFrom = *input.EffectiveFrom
	}

	bom := &entity.BOM{
		ID:            uuid.New().String()[:32],
		ProductID:     input.ProductID,
		Version:       version,
		Status:        entity.BOMStatusDraft,
		EffectiveFrom: effectiveFrom,
		Notes:         input.Notes,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, bom); err != nil {
		return nil, fmt.Errorf("create bom: %w", err)
	}
	return bom, nil
}

// Get 获取BOM详情（含行项）
func (s *BOMService) Get(ctx context.Context, id string) (*entity.BOM, error) {
	return s.store.FindByID(ctx, id)
}

// ListVersions 获取产品的所有BOM版本
func (s *BOMService) ListVersions(ctx context.Context, productID string) ([]entity.BOM, error) {
	return s.store.FindVersions(ctx, productID)
}

// GetEffective 获取产品在指定日期生效的BOM
func (s *BOMService) GetEffective(ctx context.Context, productID string, asOf time.Time) (*entity.BOM, error) {
	return s.store.FindEffective(ctx, productID, asOf)
}

// NewVersion 基于现有BOM克隆新版本（草稿状态，记录前序版本）
func (s *BOMService) NewVersion(ctx context.Context, bomID, version, createdBy string) (*entity.BOM, error) {
	src, err := s.store.FindByID(ctx, bomID)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if err := s.ensureVersionUnique(ctx, src.ProductID, version); err != nil {
		return nil, err
	}

	now := time.Now()
	clone := &entity.BOM{
		ID:            uuid.New().String()[:32],
		ProductID:     src.ProductID,
		Version:       version,
		Status:        entity.BOMStatusDraft,
		EffectiveFrom: now,
		PredecessorID: &src.ID,
		Notes:         src.Notes,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("create bom version: %w", err)
	}

	for _, line := range src.Lines {
		newLine := line
		newLine.ID = uuid.New().String()[:32]
		newLine.BOMID = clone.ID
		newLine.CreatedAt = now
		newLine.UpdatedAt = now
		if err := s.store.CreateLine(ctx, &newLine); err != nil {
			return nil, fmt.Errorf("copy bom line: %w", err)
		}
	}

	return s.store.FindByID(ctx, clone.ID)
}

// Release 发布BOM：空BOM拒绝发布；同产品此前生效的版本自动截止
func (s *BOMService) Release(ctx context.Context, id, userID string) (*entity.BOM, error) {
	bom, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return nil, &InvalidVersionError{ProductID: bom.ProductID, Version: bom.Version, Reason: "只有草稿状态的BOM才能发布"}
	}
	if len(bom.Lines) == 0 {
		return nil, fmt.Errorf("BOM没有行项，无法发布")
	}

	now := time.Now()
	if bom.EffectiveFrom.IsZero() {
		bom.EffectiveFrom = now
	}

	// 保证同一产品任意时间点只有一个生效BOM：关闭此前未截止的已发布版本
	if prev, findErr := s.store.FindEffective(ctx, bom.ProductID, bom.EffectiveFrom); findErr == nil && prev.ID != bom.ID {
		effectiveTo := bom.EffectiveFrom
		prev.EffectiveTo = &effectiveTo
		prev.UpdatedAt = now
		if err := s.store.Update(ctx, prev); err != nil {
			return nil, fmt.Errorf("close predecessor bom: %w", err)
		}
	}

	bom.Status = entity.BOMStatusReleased
	bom.ReleasedBy = userID
	bom.ReleasedAt = &now
	bom.UpdatedAt = now
	if err := s.store.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("release bom: %w", err)
	}
	return bom, nil
}

// Obsolete 作废BOM（released → obsolete）
func (s *BOMService) Obsolete(ctx context.Context, id string) (*entity.BOM, error) {
	bom, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusReleased {
		return nil, &InvalidVersionError{ProductID: bom.ProductID, Version: bom.Version, Reason: "只有已发布的BOM才能作废"}
	}

	now := time.Now()
	bom.Status = entity.BOMStatusObsolete
	if bom.EffectiveTo == nil {
		bom.EffectiveTo = &now
	}
	bom.UpdatedAt = now
	if err := s.store.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("obsolete bom: %w", err)
	}
	return bom, nil
}

// AddLine 添加BOM行项：仅草稿可改，行号唯一，入库前做循环引用预检
func (s *BOMService) AddLine(ctx context.Context, bomID string, input *BOMLineInput) (*entity.BOMLine, error) {
	bom, err := s.store.FindByID(ctx, bomID)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return nil, &InvalidVersionError{ProductID: bom.ProductID, Version: bom.Version, Reason: "只有草稿状态的BOM才能添加行项"}
	}
	for _, line := range bom.Lines {
		if line.LineNumber == input.LineNumber {
			return nil, fmt.Errorf("行号 %d 已存在", input.LineNumber)
		}
	}
	if input.ComponentID == bom.ProductID {
		return nil, &CircularDependencyError{Path: []string{bom.ProductID, input.ComponentID}}
	}

	// 预检：沿候选组件自身的BOM树查找父产品ID，阻止循环入库
	if err := s.checkCircular(ctx, bom.ProductID, input.ComponentID); err != nil {
		return nil, err
	}

	now := time.Now()
	unit := input.Unit
	if unit == "" {
		unit = "pcs"
	}
	effectiveFrom := now
	if input.EffectiveFrom != nil {
		effectiveFrom = *input.EffectiveFrom
	}
	line := &entity.BOMLine{
		ID:            uuid.New().String()[:32],
		BOMID:         bomID,
		LineNumber:    input.LineNumber,
		ComponentID:   input.ComponentID,
		Quantity:      input.Quantity,
		ScrapFactor:   input.ScrapFactor,
		Unit:          unit,
		OperationNo:   input.OperationNo,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   input.EffectiveTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateLine(ctx, line); err != nil {
		return nil, fmt.Errorf("create bom line: %w", err)
	}
	return line, nil
}

// UpdateLine 更新BOM行项（仅草稿）
func (s *BOMService) UpdateLine(ctx context.Context, bomID, lineID string, input *BOMLineInput) (*entity.BOMLine, error) {
	bom, err := s.store.FindByID(ctx, bomID)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return nil, &InvalidVersionError{ProductID: bom.ProductID, Version: bom.Version, Reason: "只有草稿状态的BOM才能修改行项"}
	}

	line, err := s.store.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("bom line not found: %w", err)
	}
	if line.BOMID != bomID {
		return nil, fmt.Errorf("行项不属于该BOM")
	}

	if input.ComponentID != "" && input.ComponentID != line.ComponentID {
		if input.ComponentID == bom.ProductID {
			return nil, &CircularDependencyError{Path: []string{bom.ProductID, input.ComponentID}}
		}
		if err := s.checkCircular(ctx, bom.ProductID, input.ComponentID); err != nil {
			return nil, err
		}
		line.ComponentID = input.ComponentID
	}
	if input.Quantity > 0 {
		line.Quantity = input.Quantity
	}
	line.ScrapFactor = input.ScrapFactor
	if input.Unit != "" {
		line.Unit = input.Unit
	}
	if input.OperationNo != nil {
		line.OperationNo = input.OperationNo
	}
	if input.EffectiveFrom != nil {
		line.EffectiveFrom = *input.EffectiveFrom
	}
	line.EffectiveTo = input.EffectiveTo
	line.UpdatedAt = time.Now()

	if err := s.store.UpdateLine(ctx, line); err != nil {
		return nil, fmt.Errorf("update bom line: %w", err)
	}
	return line, nil
}

// RemoveLine 删除BOM行项（仅草稿）
func (s *BOMService) RemoveLine(ctx context.Context, bomID, lineID string) error {
	bom, err := s.store.FindByID(ctx, bomID)
	if err != nil {
		return fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return &InvalidVersionError{ProductID: bom.ProductID, Version: bom.Version, Reason: "只有草稿状态的BOM才能删除行项"}
	}
	line, err := s.store.FindLineByID(ctx, lineID)
	if err != nil {
		return fmt.Errorf("bom line not found: %w", err)
	}
	if line.BOMID != bomID {
		return fmt.Errorf("行项不属于该BOM")
	}
	if err := s.store.DeleteLine(ctx, lineID); err != nil {
		return fmt.Errorf("delete bom line: %w", err)
	}
	return nil
}

// ExplodedComponent 展开结果：扁平记录，父项先于子项
type ExplodedComponent struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Level     int     `json:"level"`
	Unit      string  `json:"unit"`
}

// Explode 多层展开：每行 requiredQty = 含损耗用量 × 父数量，
// 组件若有生效BOM则递归展开（层级+1），展开期间做循环检测
func (s *BOMService) Explode(ctx context.Context, bomID string, parentQty float64) ([]ExplodedComponent, error) {
	bom, err := s.store.FindByID(ctx, bomID)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	asOf := time.Now()
	visited := map[string]bool{bom.ProductID: true}
	return s.explode(ctx, bom, parentQty, 0, visited, []string{bom.ProductID}, asOf)
}

func (s *BOMService) explode(ctx context.Context, bom *entity.BOM, parentQty float64, level int, visited map[string]bool, path []string, asOf time.Time) ([]ExplodedComponent, error) {
	var result []ExplodedComponent
	for i := range bom.Lines {
		line := &bom.Lines[i]
		if !line.EffectiveOn(asOf) {
			continue
		}
		requiredQty := line.QuantityWithScrap() * parentQty
		result = append(result, ExplodedComponent{
			ProductID: line.ComponentID,
			Quantity:  requiredQty,
			Level:     level,
			Unit:      line.Unit,
		})

		if visited[line.ComponentID] {
			return nil, &CircularDependencyError{Path: append(append([]string{}, path...), line.ComponentID)}
		}
		if level+1 > maxBOMDepth {
			continue
		}

		child, err := s.store.FindEffective(ctx, line.ComponentID, asOf)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue // 采购件，无下级BOM
			}
			return nil, fmt.Errorf("find effective bom for %s: %w", line.ComponentID, err)
		}

		visited[line.ComponentID] = true
		childResult, err := s.explode(ctx, child, requiredQty, level+1, visited, append(path, line.ComponentID), asOf)
		if err != nil {
			return nil, err
		}
		delete(visited, line.ComponentID)
		result = append(result, childResult...)
	}
	return result, nil
}

// WhereUsed 反查：组件被哪些产品的生效BOM使用
func (s *BOMService) WhereUsed(ctx context.Context, componentID string) ([]entity.BOM, error) {
	return s.store.FindWhereUsed(ctx, componentID, time.Now())
}

// Validate 校验BOM，返回全部问题清单而不是在第一个问题上报错
func (s *BOMService) Validate(ctx context.Context, bomID string) []string {
	var problems []string

	bom, err := s.store.FindByID(ctx, bomID)
	if err != nil {
		return []string{fmt.Sprintf("BOM不存在: %v", err)}
	}

	if len(bom.Lines) == 0 {
		problems = append(problems, "BOM没有行项")
	}

	seen := make(map[int]bool)
	for i := range bom.Lines {
		line := &bom.Lines[i]
		if seen[line.LineNumber] {
			problems = append(problems, fmt.Sprintf("行号 %d 重复", line.LineNumber))
		}
		seen[line.LineNumber] = true
		if line.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("行号 %d 用量必须大于0", line.LineNumber))
		}
	}

	// 试展开以暴露深层循环
	if _, err := s.Explode(ctx, bomID, 1); err != nil {
		problems = append(problems, err.Error())
	}

	return problems
}

// checkCircular 循环预检：沿candidate的BOM树查找parentProductID
func (s *BOMService) checkCircular(ctx context.Context, parentProductID, candidateID string) error {
	asOf := time.Now()
	visited := make(map[string]bool)
	return s.walkForCycle(ctx, parentProductID, candidateID, visited, []string{parentProductID}, asOf, 0)
}

func (s *BOMService) walkForCycle(ctx context.Context, target, current string, visited map[string]bool, path []string, asOf time.Time, depth int) error {
	path = append(path, current)
	if current == target {
		return &CircularDependencyError{Path: path}
	}
	if visited[current] || depth > maxBOMDepth {
		return nil
	}
	visited[current] = true

	bom, err := s.store.FindEffective(ctx, current, asOf)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find effective bom for %s: %w", current, err)
	}
	for i := range bom.Lines {
		if err := s.walkForCycle(ctx, target, bom.Lines[i].ComponentID, visited, path, asOf, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *BOMService) ensureVersionUnique(ctx context.Context, productID, version string) error {
	versions, err := s.store.FindVersions(ctx, productID)
	if err != nil {
		return fmt.Errorf("list bom versions: %w", err)
	}
	for i := range versions {
		if versions[i].Version == version {
			return &InvalidVersionError{ProductID: productID, Version: version, Reason: "版本号已存在"}
		}
	}
	return nil
}
