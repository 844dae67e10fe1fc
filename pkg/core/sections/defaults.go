package sections

// DefaultSectionIDs are returned when neither an explicit query nor any
// keyword selects a section.
var DefaultSectionIDs = []string{"2-4", "2-3", "1-3"}

// builtinSections mirrors the table of contents of the Japanese annual
// securities report (有価証券報告書) and the jpcrp text-block elements that
// carry each part.
var builtinSections = []Definition{
	{ID: "1-1", Title: "主要な経営指標等の推移", Keywords: []string{"経営指標", "kpi", "推移"}, TagCandidates: []string{"BusinessResultsOfGroupTextBlock"}, Aliases: []string{"主要KPI", "指標推移"}},
	{ID: "1-2", Title: "沿革", Keywords: []string{"沿革", "歴史", "創業"}, TagCandidates: []string{"CompanyHistoryTextBlock"}, Aliases: []string{"会社の歴史"}},
	{ID: "1-3", Title: "事業の内容", Keywords: []string{"事業", "ビジネスモデル", "セグメント"}, TagCandidates: []string{"DescriptionOfBusinessTextBlock"}, Aliases: []string{"事業内容", "ビジネス"}},
	{ID: "1-4", Title: "関係会社の状況", Keywords: []string{"関係会社", "子会社", "関連会社"}, TagCandidates: []string{"OverviewOfAffiliatedEntitiesTextBlock"}},
	{ID: "1-5", Title: "従業員の状況", Keywords: []string{"従業員", "社員", "人員"}, TagCandidates: []string{"InformationAboutEmployeesTextBlock"}, Aliases: []string{"人的資本"}},
	{ID: "2-1", Title: "経営方針、経営環境及び対処すべき課題等", Keywords: []string{"経営方針", "経営環境", "課題", "対処"}, TagCandidates: []string{"BusinessPolicyBusinessEnvironmentIssuesToAddressEtcTextBlock", "OverviewOfBusinessResultsTextBlock"}, Aliases: []string{"経営課題"}},
	{ID: "2-2", Title: "サステナビリティに関する考え方及び取組", Keywords: []string{"サステナビリティ", "esg", "気候", "脱炭素", "人的資本"}, TagCandidates: []string{"DisclosureOfSustainabilityRelatedFinancialInformationTextBlock"}, Aliases: []string{"ESG"}},
	{ID: "2-3", Title: "事業等のリスク", Keywords: []string{"リスク", "不確実性", "懸念", "継続企業"}, TagCandidates: []string{"BusinessRisksTextBlock", "MaterialMattersRelatingToGoingConcernEtcBusinessRisksTextBlock"}, Aliases: []string{"リスク情報"}},
	{ID: "2-4", Title: "経営者による財政状態、経営成績及びキャッシュ・フローの状況の分析", Keywords: []string{"財政状態", "経営成績", "キャッシュフロー", "md&a", "分析"}, TagCandidates: []string{"ManagementAnalysisOfFinancialPositionOperatingResultsAndCashFlowsTextBlock"}, Aliases: []string{"MD&A", "経営者分析"}},
	{ID: "2-5", Title: "重要な契約等", Keywords: []string{"契約", "提携", "ライセンス"}, TagCandidates: []string{"MaterialContractsTextBlock", "SignificantContractsTextBlock"}},
	{ID: "2-6", Title: "研究開発活動", Keywords: []string{"研究開発", "r&d"}, TagCandidates: []string{"ResearchAndDevelopmentActivitiesTextBlock"}},
	{ID: "3-1", Title: "設備投資等の概要", Keywords: []string{"設備投資", "capex"}, TagCandidates: []string{"CapitalExpendituresOverviewTextBlock", "OverviewOfCapitalExpendituresEtcTextBlock"}},
	{ID: "3-2", Title: "主要な設備の状況", Keywords: []string{"設備", "工場", "拠点"}, TagCandidates: []string{"MajorFacilitiesTextBlock", "MainFacilitiesTextBlock"}},
	{ID: "3-3", Title: "設備の新設、除却等の計画", Keywords: []string{"新設", "除却", "設備計画"}, TagCandidates: []string{"PlansForNewConstructionRemovalEtcOfFacilitiesTextBlock"}},
	{ID: "4-1-1", Title: "株式の総数等", Keywords: []string{"株式数", "発行済株式", "株数"}, TagCandidates: []string{"TotalNumberOfSharesEtcTextBlock"}},
	{ID: "4-1-5", Title: "所有者別状況", Keywords: []string{"所有者別", "株主構成"}, TagCandidates: []string{"DistributionOfShareholdersTextBlock"}},
	{ID: "4-1-6", Title: "大株主の状況", Keywords: []string{"大株主", "主要株主"}, TagCandidates: []string{"MajorShareholdersTextBlock"}},
	{ID: "4-3", Title: "配当政策", Keywords: []string{"配当", "配当政策", "配当性向"}, TagCandidates: []string{"DividendPolicyTextBlock"}},
	{ID: "4-4-1", Title: "コーポレート・ガバナンスの概要", Keywords: []string{"コーポレートガバナンス", "ガバナンス"}, TagCandidates: []string{"OverviewOfCorporateGovernanceTextBlock"}},
	{ID: "4-4-2", Title: "役員の状況", Keywords: []string{"役員", "取締役", "監査役"}, TagCandidates: []string{"OfficersTextBlock", "StatusOfOfficersTextBlock"}},
	{ID: "4-4-3", Title: "監査の状況", Keywords: []string{"監査", "内部監査", "会計監査"}, TagCandidates: []string{"AuditTextBlock", "StatusOfAuditTextBlock"}},
	{ID: "4-4-4", Title: "役員の報酬等", Keywords: []string{"報酬", "役員報酬"}, TagCandidates: []string{"CompensationForOfficersTextBlock", "RemunerationForDirectorsTextBlock"}},
	{ID: "5-1-1", Title: "連結財務諸表", Keywords: []string{"連結財務諸表", "連結"}, TagCandidates: []string{"ConsolidatedFinancialStatementsTextBlock"}},
	{ID: "5-1-2", Title: "その他（連結）", Keywords: []string{"連結注記", "連結その他"}, TagCandidates: []string{"OtherInformationConsolidatedTextBlock"}},
	{ID: "5-2-1", Title: "財務諸表（単体）", Keywords: []string{"財務諸表", "単体", "貸借対照表", "損益計算書"}, TagCandidates: []string{"NonConsolidatedFinancialStatementsTextBlock", "FinancialStatementsTextBlock"}},
	{ID: "5-2-2", Title: "主な資産及び負債の内容", Keywords: []string{"資産", "負債"}, TagCandidates: []string{"MajorAssetsAndLiabilitiesTextBlock"}},
	{ID: "5-2-3", Title: "その他（単体）", Keywords: []string{"単体その他"}, TagCandidates: []string{"OtherInformationNonConsolidatedTextBlock"}},
	{ID: "6", Title: "提出会社の株式事務の概要", Keywords: []string{"株式事務"}, TagCandidates: []string{"ShareHandlingProceduresTextBlock"}},
	{ID: "7-1", Title: "提出会社の親会社等の情報", Keywords: []string{"親会社"}, TagCandidates: []string{"InformationAboutParentCompanyEtcTextBlock"}},
	{ID: "7-2", Title: "その他の参考情報", Keywords: []string{"参考情報"}, TagCandidates: []string{"OtherReferenceInformationTextBlock"}},
	{ID: "8", Title: "提出会社の保証会社等の情報", Keywords: []string{"保証会社"}, TagCandidates: []string{"InformationAboutGuarantorCompaniesEtcTextBlock"}},
}
