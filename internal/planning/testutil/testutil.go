// Package testutil 提供计划域服务契约的内存实现，供单元测试使用。
// 所有实现都不做并发保护，只支持单goroutine测试。
package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
)

// Date 构造UTC零点日期，测试里统一用它表示需求日/计划日
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func statusIn(status string, statuses []string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// MemoryProductStore 产品主数据内存实现
type MemoryProductStore struct {
	Products map[string]*entity.Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{Products: make(map[string]*entity.Product)}
}

// Add 直接塞入一个产品，跳过服务层校验
func (s *MemoryProductStore) Add(p *entity.Product) {
	cp := *p
	s.Products[p.ID] = &cp
}

func (s *MemoryProductStore) Create(_ context.Context, p *entity.Product) error {
	cp := *p
	s.Products[p.ID] = &cp
	return nil
}

func (s *MemoryProductStore) Update(_ context.Context, p *entity.Product) error {
	if _, ok := s.Products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	s.Products[p.ID] = &cp
	return nil
}

func (s *MemoryProductStore) FindByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := s.Products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProductStore) FindByCode(_ context.Context, code string) (*entity.Product, error) {
	for _, p := range s.Products {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemoryProductStore) FindAll(_ context.Context) ([]entity.Product, error) {
	out := make([]entity.Product, 0, len(s.Products))
	for _, p := range s.Products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// MemoryInventoryStore 库存快照内存实现，同时满足MRP的现有库存查询
type MemoryInventoryStore struct {
	Records map[string]*entity.Inventory // key: productID+"/"+warehouseID
}

func NewMemoryInventoryStore() *MemoryInventoryStore {
	return &MemoryInventoryStore{Records: make(map[string]*entity.Inventory)}
}

// Set 直接设置某产品的可用库存
func (s *MemoryInventoryStore) Set(productID string, qty float64) {
	s.Records[productID+"/default"] = &entity.Inventory{
		ID:           productID + "-inv",
		ProductID:    productID,
		WarehouseID:  "default",
		Quantity:     qty,
		AvailableQty: qty,
	}
}

func (s *MemoryInventoryStore) Upsert(_ context.Context, inv *entity.Inventory) error {
	cp := *inv
	s.Records[inv.ProductID+"/"+inv.WarehouseID] = &cp
	return nil
}

func (s *MemoryInventoryStore) FindByProduct(_ context.Context, productID string) ([]entity.Inventory, error) {
	var out []entity.Inventory
	for _, inv := range s.Records {
		if inv.ProductID == productID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *MemoryInventoryStore) OnHand(_ context.Context, productID string) (float64, error) {
	var total float64
	for _, inv := range s.Records {
		if inv.ProductID == productID {
			total += inv.AvailableQty
		}
	}
	return total, nil
}

// MemoryDemandStore 独立需求内存实现
type MemoryDemandStore struct {
	Demands map[string]*entity.Demand
}

func NewMemoryDemandStore() *MemoryDemandStore {
	return &MemoryDemandStore{Demands: make(map[string]*entity.Demand)}
}

// Add 直接塞入一条需求
func (s *MemoryDemandStore) Add(d *entity.Demand) {
	cp := *d
	s.Demands[d.ID] = &cp
}

func (s *MemoryDemandStore) Create(_ context.Context, d *entity.Demand) error {
	cp := *d
	s.Demands[d.ID] = &cp
	return nil
}

func (s *MemoryDemandStore) Update(_ context.Context, d *entity.Demand) error {
	if _, ok := s.Demands[d.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *d
	s.Demands[d.ID] = &cp
	return nil
}

func (s *MemoryDemandStore) Delete(_ context.Context, id string) error {
	if _, ok := s.Demands[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Demands, id)
	return nil
}

func (s *MemoryDemandStore) FindByID(_ context.Context, id string) (*entity.Demand, error) {
	d, ok := s.Demands[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryDemandStore) FindDueWithin(_ context.Context, productID string, from, to time.Time) ([]entity.Demand, error) {
	var out []entity.Demand
	for _, d := range s.Demands {
		if d.ProductID == productID && !d.DueDate.Before(from) && d.DueDate.Before(to) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// MemoryReceiptStore 计划入库内存实现
type MemoryReceiptStore struct {
	Receipts map[string]*entity.ScheduledReceipt
}

func NewMemoryReceiptStore() *MemoryReceiptStore {
	return &MemoryReceiptStore{Receipts: make(map[string]*entity.ScheduledReceipt)}
}

// Add 直接塞入一条计划入库
func (s *MemoryReceiptStore) Add(r *entity.ScheduledReceipt) {
	cp := *r
	s.Receipts[r.ID] = &cp
}

func (s *MemoryReceiptStore) Create(_ context.Context, r *entity.ScheduledReceipt) error {
	cp := *r
	s.Receipts[r.ID] = &cp
	return nil
}

func (s *MemoryReceiptStore) Delete(_ context.Context, id string) error {
	if _, ok := s.Receipts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Receipts, id)
	return nil
}

func (s *MemoryReceiptStore) FindDueWithin(_ context.Context, productID string, from, to time.Time) ([]entity.ScheduledReceipt, error) {
	var out []entity.ScheduledReceipt
	for _, r := range s.Receipts {
		if r.ProductID == productID && !r.DueDate.Before(from) && r.DueDate.Before(to) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// MemoryBOMStore BOM内存实现
type MemoryBOMStore struct {
	BOMs  map[string]*entity.BOM
	Lines map[string]*entity.BOMLine
}

func NewMemoryBOMStore() *MemoryBOMStore {
	return &MemoryBOMStore{
		BOMs:  make(map[string]*entity.BOM),
		Lines: make(map[string]*entity.BOMLine),
	}
}

func (s *MemoryBOMStore) linesOf(bomID string) []entity.BOMLine {
	var out []entity.BOMLine
	for _, l := range s.Lines {
		if l.BOMID == bomID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out
}

func (s *MemoryBOMStore) withLines(b *entity.BOM) *entity.BOM {
	cp := *b
	cp.Lines = s.linesOf(b.ID)
	return &cp
}

func (s *MemoryBOMStore) Create(_ context.Context, bom *entity.BOM) error {
	cp := *bom
	cp.Lines = nil
	s.BOMs[bom.ID] = &cp
	for i := range bom.Lines {
		line := bom.Lines[i]
		s.Lines[line.ID] = &line
	}
	return nil
}

func (s *MemoryBOMStore) Update(_ context.Context, bom *entity.BOM) error {
	if _, ok := s.BOMs[bom.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *bom
	cp.Lines = nil
	s.BOMs[bom.ID] = &cp
	return nil
}

func (s *MemoryBOMStore) FindByID(_ context.Context, id string) (*entity.BOM, error) {
	b, ok := s.BOMs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withLines(b), nil
}

func (s *MemoryBOMStore) FindVersions(_ context.Context, productID string) ([]entity.BOM, error) {
	var out []entity.BOM
	for _, b := range s.BOMs {
		if b.ProductID == productID {
			out = append(out, *s.withLines(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryBOMStore) FindEffective(_ context.Context, productID string, asOf time.Time) (*entity.BOM, error) {
	var best *entity.BOM
	for _, b := range s.BOMs {
		if b.ProductID != productID || !b.EffectiveOn(asOf) {
			continue
		}
		if best == nil || b.EffectiveFrom.After(best.EffectiveFrom) {
			best = b
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return s.withLines(best), nil
}

func (s *MemoryBOMStore) FindWhereUsed(_ context.Context, componentID string, asOf time.Time) ([]entity.BOM, error) {
	var out []entity.BOM
	for _, b := range s.BOMs {
		if !b.EffectiveOn(asOf) {
			continue
		}
		for _, l := range s.linesOf(b.ID) {
			if l.ComponentID == componentID && l.EffectiveOn(asOf) {
				out = append(out, *s.withLines(b))
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryBOMStore) CreateLine(_ context.Context, line *entity.BOMLine) error {
	cp := *line
	s.Lines[line.ID] = &cp
	return nil
}

func (s *MemoryBOMStore) UpdateLine(_ context.Context, line *entity.BOMLine) error {
	if _, ok := s.Lines[line.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *line
	s.Lines[line.ID] = &cp
	return nil
}

func (s *MemoryBOMStore) DeleteLine(_ context.Context, id string) error {
	if _, ok := s.Lines[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Lines, id)
	return nil
}

func (s *MemoryBOMStore) FindLineByID(_ context.Context, id string) (*entity.BOMLine, error) {
	l, ok := s.Lines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// MemoryRoutingStore 工艺路线内存实现
type MemoryRoutingStore struct {
	Routings   map[string]*entity.Routing
	Operations map[string]*entity.RoutingOperation
}

func NewMemoryRoutingStore() *MemoryRoutingStore {
	return &MemoryRoutingStore{
		Routings:   make(map[string]*entity.Routing),
		Operations: make(map[string]*entity.RoutingOperation),
	}
}

func (s *MemoryRoutingStore) opsOf(routingID string) []entity.RoutingOperation {
	var out []entity.RoutingOperation
	for _, op := range s.Operations {
		if op.RoutingID == routingID {
			out = append(out, *op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OperationNo < out[j].OperationNo })
	return out
}

func (s *MemoryRoutingStore) withOps(r *entity.Routing) *entity.Routing {
	cp := *r
	cp.Operations = s.opsOf(r.ID)
	return &cp
}

func (s *MemoryRoutingStore) Create(_ context.Context, routing *entity.Routing) error {
	cp := *routing
	cp.Operations = nil
	s.Routings[routing.ID] = &cp
	for i := range routing.Operations {
		op := routing.Operations[i]
		s.Operations[op.ID] = &op
	}
	return nil
}

func (s *MemoryRoutingStore) Update(_ context.Context, routing *entity.Routing) error {
	if _, ok := s.Routings[routing.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *routing
	cp.Operations = nil
	s.Routings[routing.ID] = &cp
	return nil
}

func (s *MemoryRoutingStore) FindByID(_ context.Context, id string) (*entity.Routing, error) {
	r, ok := s.Routings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withOps(r), nil
}

func (s *MemoryRoutingStore) FindVersions(_ context.Context, productID string) ([]entity.Routing, error) {
	var out []entity.Routing
	for _, r := range s.Routings {
		if r.ProductID == productID {
			out = append(out, *s.withOps(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryRoutingStore) FindEffective(_ context.Context, productID string, asOf time.Time) (*entity.Routing, error) {
	var best *entity.Routing
	for _, r := range s.Routings {
		if r.ProductID != productID || !r.EffectiveOn(asOf) {
			continue
		}
		if best == nil || r.EffectiveFrom.After(best.EffectiveFrom) {
			best = r
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return s.withOps(best), nil
}

func (s *MemoryRoutingStore) CreateOperation(_ context.Context, op *entity.RoutingOperation) error {
	cp := *op
	s.Operations[op.ID] = &cp
	return nil
}

func (s *MemoryRoutingStore) UpdateOperation(_ context.Context, op *entity.RoutingOperation) error {
	if _, ok := s.Operations[op.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *op
	s.Operations[op.ID] = &cp
	return nil
}

func (s *MemoryRoutingStore) DeleteOperation(_ context.Context, id string) error {
	if _, ok := s.Operations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Operations, id)
	return nil
}

func (s *MemoryRoutingStore) FindOperationByID(_ context.Context, id string) (*entity.RoutingOperation, error) {
	op, ok := s.Operations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

// MemoryWorkCenterStore 工作中心内存实现
type MemoryWorkCenterStore struct {
	WorkCenters map[string]*entity.WorkCenter
	Closures    []entity.WorkCenterClosure
	Overtimes   []entity.WorkCenterOvertime
}

func NewMemoryWorkCenterStore() *MemoryWorkCenterStore {
	return &MemoryWorkCenterStore{WorkCenters: make(map[string]*entity.WorkCenter)}
}

// Add 直接塞入一个工作中心
func (s *MemoryWorkCenterStore) Add(wc *entity.WorkCenter) {
	cp := *wc
	s.WorkCenters[wc.ID] = &cp
}

func (s *MemoryWorkCenterStore) Create(_ context.Context, wc *entity.WorkCenter) error {
	cp := *wc
	s.WorkCenters[wc.ID] = &cp
	return nil
}

func (s *MemoryWorkCenterStore) Update(_ context.Context, wc *entity.WorkCenter) error {
	if _, ok := s.WorkCenters[wc.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *wc
	s.WorkCenters[wc.ID] = &cp
	return nil
}

func (s *MemoryWorkCenterStore) FindByID(_ context.Context, id string) (*entity.WorkCenter, error) {
	wc, ok := s.WorkCenters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *wc
	return &cp, nil
}

func (s *MemoryWorkCenterStore) FindByCode(_ context.Context, code string) (*entity.WorkCenter, error) {
	for _, wc := range s.WorkCenters {
		if wc.Code == code {
			cp := *wc
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemoryWorkCenterStore) FindAll(_ context.Context) ([]entity.WorkCenter, error) {
	out := make([]entity.WorkCenter, 0, len(s.WorkCenters))
	for _, wc := range s.WorkCenters {
		out = append(out, *wc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryWorkCenterStore) CreateClosure(_ context.Context, closure *entity.WorkCenterClosure) error {
	s.Closures = append(s.Closures, *closure)
	return nil
}

func (s *MemoryWorkCenterStore) FindClosures(_ context.Context, workCenterID string, from, to time.Time) ([]entity.WorkCenterClosure, error) {
	var out []entity.WorkCenterClosure
	for _, c := range s.Closures {
		if c.WorkCenterID == workCenterID && !c.Date.Before(from) && c.Date.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryWorkCenterStore) CreateOvertime(_ context.Context, overtime *entity.WorkCenterOvertime) error {
	s.Overtimes = append(s.Overtimes, *overtime)
	return nil
}

func (s *MemoryWorkCenterStore) FindOvertimes(_ context.Context, workCenterID string, from, to time.Time) ([]entity.WorkCenterOvertime, error) {
	var out []entity.WorkCenterOvertime
	for _, o := range s.Overtimes {
		if o.WorkCenterID == workCenterID && !o.Date.Before(from) && o.Date.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

// MemoryWorkOrderStore 工单内存实现
type MemoryWorkOrderStore struct {
	WorkOrders map[string]*entity.WorkOrder
	Lines      map[string]*entity.WorkOrderLine
}

func NewMemoryWorkOrderStore() *MemoryWorkOrderStore {
	return &MemoryWorkOrderStore{
		WorkOrders: make(map[string]*entity.WorkOrder),
		Lines:      make(map[string]*entity.WorkOrderLine),
	}
}

func (s *MemoryWorkOrderStore) linesOf(workOrderID string) []entity.WorkOrderLine {
	var out []entity.WorkOrderLine
	for _, l := range s.Lines {
		if l.WorkOrderID == workOrderID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out
}

func (s *MemoryWorkOrderStore) withLines(wo *entity.WorkOrder) *entity.WorkOrder {
	cp := *wo
	cp.Lines = s.linesOf(wo.ID)
	return &cp
}

func (s *MemoryWorkOrderStore) Create(_ context.Context, wo *entity.WorkOrder) error {
	cp := *wo
	cp.Lines = nil
	s.WorkOrders[wo.ID] = &cp
	return nil
}

func (s *MemoryWorkOrderStore) Update(_ context.Context, wo *entity.WorkOrder) error {
	if _, ok := s.WorkOrders[wo.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *wo
	cp.Lines = nil
	s.WorkOrders[wo.ID] = &cp
	return nil
}

func (s *MemoryWorkOrderStore) FindByID(_ context.Context, id string) (*entity.WorkOrder, error) {
	wo, ok := s.WorkOrders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withLines(wo), nil
}

func (s *MemoryWorkOrderStore) FindByCode(_ context.Context, code string) (*entity.WorkOrder, error) {
	for _, wo := range s.WorkOrders {
		if wo.Code == code {
			return s.withLines(wo), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemoryWorkOrderStore) FindByStatus(_ context.Context, statuses []string) ([]entity.WorkOrder, error) {
	var out []entity.WorkOrder
	for _, wo := range s.WorkOrders {
		if statusIn(wo.Status, statuses) {
			out = append(out, *s.withLines(wo))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryWorkOrderStore) FindByWorkCenterAndDateRange(_ context.Context, workCenterID string, from, to time.Time, statuses []string) ([]entity.WorkOrder, error) {
	var out []entity.WorkOrder
	for _, wo := range s.WorkOrders {
		if !statusIn(wo.Status, statuses) {
			continue
		}
		if wo.PlannedStart == nil || wo.PlannedStart.Before(from) || !wo.PlannedStart.Before(to) {
			continue
		}
		lines := s.linesOf(wo.ID)
		for i := range lines {
			if lines[i].LineType == entity.WOLineTypeOperation && lines[i].WorkCenterID == workCenterID {
				cp := *wo
				cp.Lines = lines
				out = append(out, cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlannedStart.Before(*out[j].PlannedStart) })
	return out, nil
}

func (s *MemoryWorkOrderStore) CreateLines(_ context.Context, lines []entity.WorkOrderLine) error {
	for i := range lines {
		line := lines[i]
		s.Lines[line.ID] = &line
	}
	return nil
}

func (s *MemoryWorkOrderStore) UpdateLine(_ context.Context, line *entity.WorkOrderLine) error {
	if _, ok := s.Lines[line.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *line
	s.Lines[line.ID] = &cp
	return nil
}

func (s *MemoryWorkOrderStore) DeleteLines(_ context.Context, workOrderID string) error {
	for id, l := range s.Lines {
		if l.WorkOrderID == workOrderID {
			delete(s.Lines, id)
		}
	}
	return nil
}

func (s *MemoryWorkOrderStore) FindLineByID(_ context.Context, id string) (*entity.WorkOrderLine, error) {
	l, ok := s.Lines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// MemoryMRPStore MRP运行记录内存实现，同时满足产能侧的计划订单查询
type MemoryMRPStore struct {
	Runs         map[string]*entity.MRPRun
	Requirements []entity.MRPRequirement
	Orders       []entity.PlannedOrder
}

func NewMemoryMRPStore() *MemoryMRPStore {
	return &MemoryMRPStore{Runs: make(map[string]*entity.MRPRun)}
}

func (s *MemoryMRPStore) CreateRun(_ context.Context, run *entity.MRPRun) error {
	cp := *run
	s.Runs[run.ID] = &cp
	return nil
}

func (s *MemoryMRPStore) UpdateRun(_ context.Context, run *entity.MRPRun) error {
	if _, ok := s.Runs[run.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *run
	s.Runs[run.ID] = &cp
	return nil
}

func (s *MemoryMRPStore) FindRunByID(_ context.Context, id string) (*entity.MRPRun, error) {
	run, ok := s.Runs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *MemoryMRPStore) FindRuns(_ context.Context, productID string, limit int) ([]entity.MRPRun, error) {
	var out []entity.MRPRun
	for _, run := range s.Runs {
		if productID == "" || run.ProductID == productID {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryMRPStore) CreateRequirements(_ context.Context, reqs []entity.MRPRequirement) error {
	s.Requirements = append(s.Requirements, reqs...)
	return nil
}

func (s *MemoryMRPStore) CreatePlannedOrders(_ context.Context, orders []entity.PlannedOrder) error {
	s.Orders = append(s.Orders, orders...)
	return nil
}

func (s *MemoryMRPStore) FindRequirements(_ context.Context, runID string) ([]entity.MRPRequirement, error) {
	var out []entity.MRPRequirement
	for _, r := range s.Requirements {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryMRPStore) FindPlannedOrders(_ context.Context, runID string) ([]entity.PlannedOrder, error) {
	var out []entity.PlannedOrder
	for _, o := range s.Orders {
		if o.RunID == runID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MemoryMRPStore) UpdatePlannedOrder(_ context.Context, order *entity.PlannedOrder) error {
	for i := range s.Orders {
		if s.Orders[i].ID == order.ID {
			s.Orders[i] = *order
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *MemoryMRPStore) FindByDateRange(_ context.Context, from, to time.Time) ([]entity.PlannedOrder, error) {
	var out []entity.PlannedOrder
	for _, o := range s.Orders {
		if !o.StartDate.Before(from) && o.StartDate.Before(to) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}
