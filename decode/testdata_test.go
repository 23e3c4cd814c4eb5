package decode

const portBody = `svdata={"api_result":1,"api_result_msg":"ok","api_data":{
"api_material":[{"api_id":1,"api_value":1000},{"api_id":2,"api_value":2000},{"api_id":3,"api_value":3000},{"api_id":4,"api_value":4000},{"api_id":5,"api_value":5},{"api_id":6,"api_value":6},{"api_id":7,"api_value":7},{"api_id":8,"api_value":8}],
"api_deck_port":[{"api_id":1,"api_name":"First","api_ship":[11,12,-1,-1,-1,-1],"api_mission":[0,0,0,0]},
                 {"api_id":2,"api_name":"Second","api_ship":[21,-1,-1,-1,-1,-1],"api_mission":[1,5,1420070400000,0]}],
"api_ship":[{"api_id":11,"api_ship_id":101,"api_lv":50,"api_nowhp":30,"api_maxhp":32,"api_cond":49,"api_fuel":10,"api_bull":10},
            {"api_id":12,"api_ship_id":102,"api_lv":20,"api_nowhp":15,"api_maxhp":15,"api_cond":40,"api_fuel":5,"api_bull":5},
            {"api_id":21,"api_ship_id":201,"api_lv":1,"api_nowhp":9,"api_maxhp":9,"api_cond":40,"api_fuel":1,"api_bull":1}],
"api_ndock":[{"api_id":1,"api_state":1,"api_ship_id":12,"api_complete_time":1420070400000},{"api_id":2,"api_state":0,"api_ship_id":0,"api_complete_time":0}],
"api_combined_flag":0,
"api_basic":{"api_nickname":"admiral","api_level":99,"api_max_chara":300,"api_max_slotitem":1200}}}`

const battleBody = `svdata={"api_result":1,"api_data":{
"api_dock_id":1,"api_formation":[1,2,1],
"api_nowhps":[-1,30,15,-1,-1,-1,-1,20,20,-1,-1,-1,-1],
"api_maxhps":[-1,32,15,-1,-1,-1,-1,20,20,-1,-1,-1,-1],
"api_ship_ke":[-1,501,502,-1,-1,-1,-1],
"api_midnight_flag":1,"api_opening_flag":0,"api_hourai_flag":[1,0,0,1],
"api_hougeki1":{"api_at_list":[-1,1,7],"api_df_list":[-1,[7],[1,1]],"api_damage":[-1,[12.1],[3,0]],"api_cl_list":[-1,[1],[1,0]]}}}`

const combinedBattleBody = `svdata={"api_result":1,"api_data":{
"api_deck_id":"1","api_formation":[11,1,1],
"api_nowhps":[-1,30,15,-1,-1,-1,-1,20,20,-1,-1,-1,-1],
"api_maxhps":[-1,32,15,-1,-1,-1,-1,20,20,-1,-1,-1,-1],
"api_nowhps_combined":[-1,9,9,-1,-1,-1,-1],
"api_maxhps_combined":[-1,9,9,-1,-1,-1,-1],
"api_ship_ke":[-1,501,502,-1,-1,-1,-1],
"api_midnight_flag":0,"api_opening_flag":1,"api_hourai_flag":[1,1,0,1]}}`

const questListBody = `svdata={"api_result":1,"api_data":{"api_count":7,"api_page_count":2,"api_disp_page":1,
"api_list":[{"api_no":201,"api_category":2,"api_type":1,"api_state":2,"api_title":"sortie","api_progress_flag":1},-1,
{"api_no":303,"api_category":3,"api_type":1,"api_state":1,"api_title":"practice","api_progress_flag":0}]}}`

const nextBody = `svdata={"api_result":1,"api_data":{"api_maparea_id":2,"api_mapinfo_no":3,"api_no":4,"api_event_id":5,"api_color_no":5,"api_next":0}}`
